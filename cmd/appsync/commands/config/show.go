package config

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/appdevdesigns/appbuilder-platform-mobile/internal/cli/output"
	"github.com/appdevdesigns/appbuilder-platform-mobile/pkg/config"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the current appsync configuration.

By default outputs YAML format. Use --output to change format.

Examples:
  # Show default config as YAML
  appsync config show

  # Show as JSON
  appsync config show --output json

  # Show specific config file
  appsync config show --config /etc/appsync/config.yaml`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	// Config path comes from the root command's persistent flag
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, cfg)
	default:
		return output.PrintYAML(os.Stdout, cfg)
	}
}
