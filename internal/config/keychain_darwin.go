//go:build darwin

package config

import (
	"fmt"
	"os/exec"
)

// keychainExec reads a generic password item from the login keychain.
func keychainExec(service, account string) ([]byte, error) {
	out, err := exec.Command("security", "find-generic-password", "-s", service, "-a", account, "-w").Output()
	if err != nil {
		return nil, fmt.Errorf("keychain item %s/%s: %w", service, account, err)
	}
	return out, nil
}
