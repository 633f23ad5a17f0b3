package commands

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/appdevdesigns/appbuilder-platform-mobile/internal/cli/prompt"
)

var (
	resetAPIPort int
	resetYes     bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Force a full remote re-synchronization",
	Long: `Clear the daemon's persisted initialization status and re-run
initialization, forcing every declared collection to be refreshed from the
relay.

Local snapshots are replaced by the relay's current data; one-time action
markers are preserved.

Examples:
  # Reset with confirmation prompt
  appsync reset

  # Reset without prompting
  appsync reset --yes`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().IntVar(&resetAPIPort, "api-port", 8080, "Admin API port")
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Skip confirmation prompt")
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetYes {
		confirmed, err := prompt.Confirm("Force a full remote re-sync of all collections?", false)
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return nil
		}
	}

	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Post(fmt.Sprintf("http://localhost:%d/api/v1/reset", resetAPIPort), "application/json", nil)
	if err != nil {
		return fmt.Errorf("failed to reach the daemon (is it running with the admin API enabled?): %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reset failed with status %d", resp.StatusCode)
	}

	fmt.Println("Re-synchronization complete.")
	return nil
}
