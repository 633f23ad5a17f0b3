package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/appdevdesigns/appbuilder-platform-mobile/internal/cli/prompt"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a sample configuration file",
	Long: `Initialize a sample appsync configuration file.

By default, the configuration file is created at $XDG_CONFIG_HOME/appsync/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  appsync init

  # Initialize with custom path
  appsync init --config /etc/appsync/config.yaml

  # Force overwrite existing config
  appsync init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath := GetConfigFile()
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	if _, err := os.Stat(configPath); err == nil && !initForce {
		confirmed, err := prompt.Confirm(fmt.Sprintf("Configuration file %s already exists. Overwrite?", configPath), false)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := config.GetDefaultConfig()
	if err := config.SaveConfig(cfg, configPath); err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	fmt.Printf("Configuration file created at: %s\n", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("  1. Set app.id and declare your data collections")
	fmt.Println("  2. Point relay.url at your relay server (leave empty for local-only mode)")
	fmt.Println("  3. Start the daemon with: appsync start")
	fmt.Printf("  4. Or specify custom config: appsync start --config %s\n", configPath)

	return nil
}
