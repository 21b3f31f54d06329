package daemon

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
)

// UnitName is the systemd user unit the daemon is installed as.
const UnitName = "dobble.service"

const unitTemplate = `[Unit]
Description=dobble Last.fm scrobbler
Documentation=https://github.com/w4/dobble
After=graphical-session.target
PartOf=graphical-session.target

[Service]
Type=simple
ExecStart={{.BinaryPath}} daemon{{if .LogFile}} --log-file {{.LogFile}}{{end}}
WorkingDirectory={{.WorkingDirectory}}
Restart=on-failure
RestartSec=10

[Install]
WantedBy=default.target
`

// UnitConfig holds the values substituted into the systemd unit
type UnitConfig struct {
	BinaryPath       string
	LogFile          string // Empty logs to the journal
	WorkingDirectory string
}

// GenerateUnit renders the systemd user unit for config
func GenerateUnit(config UnitConfig) (string, error) {
	if config.BinaryPath == "" {
		return "", fmt.Errorf("binary path is required")
	}

	tmpl, err := template.New("unit").Parse(unitTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse unit template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, config); err != nil {
		return "", fmt.Errorf("failed to execute unit template: %w", err)
	}

	return buf.String(), nil
}

// GetUnitPath returns where the user unit is installed, honouring
// $XDG_CONFIG_HOME.
func GetUnitPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get user home directory: %w", err)
		}
		base = filepath.Join(home, ".config")
	}

	return filepath.Join(base, "systemd", "user", UnitName), nil
}
