package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/w4/dobble/internal/config"
	"github.com/w4/dobble/internal/daemon"
)

var installLogFile bool

// installCmd represents the install command
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install dobble daemon as a systemd user service",
	Long: `Install dobble daemon as a systemd user service that runs automatically on login.

This command will:
  - Generate a systemd unit for the dobble daemon
  - Install it to ~/.config/systemd/user/
  - Reload the user manager and enable the service
  - Start the daemon

The daemon will run in the background and scrobble whatever your
MPRIS media player is playing to Last.fm.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		binaryPath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}

		// Resolve symlinks to get the actual binary path
		binaryPath, err = filepath.EvalSymlinks(binaryPath)
		if err != nil {
			return fmt.Errorf("failed to resolve executable path: %w", err)
		}

		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}

		unitCfg := daemon.UnitConfig{
			BinaryPath:       binaryPath,
			WorkingDirectory: home,
		}

		if installLogFile {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			dataDir, err := cfg.DataPath()
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dataDir, 0700); err != nil {
				return fmt.Errorf("failed to create data directory: %w", err)
			}
			unitCfg.LogFile = filepath.Join(dataDir, "dobble.log")
		}

		unit, err := daemon.GenerateUnit(unitCfg)
		if err != nil {
			return fmt.Errorf("failed to generate unit: %w", err)
		}

		unitPath, err := daemon.GetUnitPath()
		if err != nil {
			return fmt.Errorf("failed to get unit path: %w", err)
		}

		if err := os.MkdirAll(filepath.Dir(unitPath), 0755); err != nil {
			return fmt.Errorf("failed to create systemd user directory: %w", err)
		}

		if _, err := os.Stat(unitPath); err == nil {
			fmt.Println("Daemon is already installed. Replacing unit...")
		}

		if err := os.WriteFile(unitPath, []byte(unit), 0644); err != nil {
			return fmt.Errorf("failed to write unit file: %w", err)
		}
		fmt.Printf("✓ Installed unit to %s\n", unitPath)

		if err := systemctl("daemon-reload"); err != nil {
			return err
		}
		if err := systemctl("enable", "--now", daemon.UnitName); err != nil {
			return err
		}
		// Pick up a new binary if the service was already running.
		if err := systemctl("restart", daemon.UnitName); err != nil {
			return err
		}

		fmt.Println("✓ Service enabled and started successfully")
		if unitCfg.LogFile != "" {
			fmt.Printf("✓ Logs will be written to %s\n", unitCfg.LogFile)
		} else {
			fmt.Printf("✓ Logs go to the journal: journalctl --user -u %s\n", daemon.UnitName)
		}
		fmt.Println("\nYou can check the daemon status with:")
		fmt.Printf("  systemctl --user status %s\n", daemon.UnitName)
		fmt.Println("\nTo uninstall, run:")
		fmt.Println("  dobble uninstall")

		return nil
	},
}

func init() {
	rootCmd.AddCommand(installCmd)

	installCmd.Flags().BoolVar(&installLogFile, "log-file", false, "Log to a file in the data directory instead of the journal")
}

// systemctl runs a systemctl command against the user manager
func systemctl(args ...string) error {
	cmd := exec.Command("systemctl", append([]string{"--user"}, args...)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if msg := strings.TrimSpace(string(output)); msg != "" {
			return fmt.Errorf("systemctl --user %s failed: %s", strings.Join(args, " "), msg)
		}
		return fmt.Errorf("failed to run systemctl --user %s: %w", strings.Join(args, " "), err)
	}
	return nil
}
