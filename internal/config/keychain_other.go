//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// keychainExec reads a secret from $XDG_DATA_HOME/sentiguard/secrets.json,
// a {service: {account: value}} object readable only by the user.
func keychainExec(service, account string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(defaultDataDir(), "secrets.json"))
	if err != nil {
		return nil, fmt.Errorf("secret store not available: %w", err)
	}
	var secrets map[string]map[string]string
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	val, ok := secrets[service][account]
	if !ok {
		return nil, fmt.Errorf("account %q not found in service %q", account, service)
	}
	return []byte(val), nil
}
