package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/sentiguard/internal/history"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Service Service
	Version string
}

// NewMCPServer creates an MCP server exposing mood scoring and alert state.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	s := server.NewMCPServer(
		"sentiguard",
		version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("sentiguard scores the mood of short texts and tracks when a guardian should be alerted."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("analyze_text",
			mcp.WithDescription("Score the sentiment of a short text on a scale from -1 (very negative) to 1 (very positive)."),
			mcp.WithString("text", mcp.Description("Text to score"), mcp.Required()),
		),
		mcpAnalyzeText(deps),
	)

	s.AddTool(
		mcp.NewTool("mood_summary",
			mcp.WithDescription("Summarize the current session's mood and bucketed mood statistics."),
			mcp.WithString("period", mcp.Description("daily, weekly or monthly (default daily)")),
		),
		mcpMoodSummary(deps),
	)

	s.AddTool(
		mcp.NewTool("alert_status",
			mcp.WithDescription("Report whether guardian alerting is Waiting or Armed and how many negative messages are pending."),
		),
		mcpAlertStatus(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"mood://history",
			"Mood History",
			mcp.WithResourceDescription("Last 100 mood history entries as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceHistory(deps),
	)

	return s
}

func mcpAnalyzeText(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcpError("text is required"), nil
		}
		a, err := deps.Service.Analyze(ctx, text)
		resp := AnalyzeResponse{Analysis: a}
		if err != nil {
			resp.Degraded = true
			resp.Error = err.Error()
		}
		return mcpJSON(resp)
	}
}

func mcpMoodSummary(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		period, err := history.ParsePeriod(req.GetString("period", ""))
		if err != nil {
			return mcpError(err.Error()), nil
		}
		return mcpJSON(map[string]any{
			"summary": deps.Service.Summary(ctx),
			"latest":  deps.Service.LatestMood(ctx),
			"period":  period,
			"buckets": deps.Service.Stats(ctx, period),
		})
	}
}

func mcpAlertStatus(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		st, err := deps.Service.AlertState(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("alert state unavailable: %v", err)), nil
		}
		return mcpJSON(st)
	}
}

func mcpResourceHistory(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(tail(deps.Service.History(), 100))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal history: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
