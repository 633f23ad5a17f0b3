package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/appdevdesigns/appbuilder-platform-mobile/internal/cli/output"
)

var (
	statusOutput  string
	statusAPIPort int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon status",
	Long: `Display the current status of a running appsync daemon.

This command calls the daemon's admin API and displays the application's
initialization status and one-time action markers.

Examples:
  # Check status (uses default settings)
  appsync status

  # Check status with custom API port
  appsync status --api-port 9080

  # Output as JSON
  appsync status --output json`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().IntVar(&statusAPIPort, "api-port", 8080, "Admin API port")
	statusCmd.Flags().StringVarP(&statusOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

// daemonStatus is the status payload reported by the admin API.
type daemonStatus struct {
	Running bool            `json:"running" yaml:"running"`
	App     string          `json:"app,omitempty" yaml:"app,omitempty"`
	Status  string          `json:"status,omitempty" yaml:"status,omitempty"`
	Markers map[string]bool `json:"markers,omitempty" yaml:"markers,omitempty"`
	Message string          `json:"message,omitempty" yaml:"message,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := output.ParseFormat(statusOutput)
	if err != nil {
		return err
	}

	status := fetchStatus(statusAPIPort)

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, status)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, status)
	default:
		pairs := [][2]string{
			{"Running:", fmt.Sprintf("%t", status.Running)},
		}
		if status.Running {
			pairs = append(pairs,
				[2]string{"App:", status.App},
				[2]string{"Status:", status.Status},
				[2]string{"Markers:", fmt.Sprintf("%d set", countSet(status.Markers))},
			)
		} else {
			pairs = append(pairs, [2]string{"Message:", status.Message})
		}
		return output.SimpleTable(os.Stdout, pairs)
	}
}

// fetchStatus queries the admin API. A daemon that cannot be reached is
// reported as not running rather than as an error.
func fetchStatus(port int) daemonStatus {
	client := &http.Client{Timeout: 2 * time.Second}

	resp, err := client.Get(fmt.Sprintf("http://localhost:%d/api/v1/status", port))
	if err != nil {
		return daemonStatus{Running: false, Message: "Daemon is not running or admin API is disabled"}
	}
	defer func() { _ = resp.Body.Close() }()

	var envelope struct {
		Data daemonStatus `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return daemonStatus{Running: false, Message: "Admin API returned an unreadable response"}
	}

	status := envelope.Data
	status.Running = true
	return status
}

func countSet(markers map[string]bool) int {
	n := 0
	for _, set := range markers {
		if set {
			n++
		}
	}
	return n
}
