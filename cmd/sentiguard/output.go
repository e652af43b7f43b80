package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+fmt.Sprintf(format, args...)))
}

func printError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+fmt.Sprintf(format, args...)))
}

func printWarning(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+fmt.Sprintf(format, args...)))
}

func printStatus(label string, format string, args ...any) {
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, fmt.Sprintf(format, args...))
}

func printStep(format string, args ...any) {
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+fmt.Sprintf(format, args...)))
}

// formatScore renders a mood score with a sign and a color for its band:
// red below -0.1, green above 0.1, plain otherwise.
func formatScore(score float64) string {
	s := fmt.Sprintf("%+.3f", score)
	switch {
	case score < -0.1:
		return colorize(colorRed, s)
	case score > 0.1:
		return colorize(colorGreen, s)
	default:
		return s
	}
}

// moodBar draws a fixed-width bar centered on 0 for a score in [-1, 1].
func moodBar(score float64, width int) string {
	half := width / 2
	n := int(score * float64(half))
	var b strings.Builder
	for i := -half; i < half; i++ {
		switch {
		case n < 0 && i >= n && i < 0:
			b.WriteByte('-')
		case n > 0 && i >= 0 && i < n:
			b.WriteByte('+')
		case i == 0:
			b.WriteByte('|')
		default:
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
