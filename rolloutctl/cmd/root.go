package cmd

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	v1alpha1 "github.com/apollo/fleetrollout/api/v1alpha1"
	"github.com/apollo/fleetrollout/pkg/client"
	"github.com/apollo/fleetrollout/pkg/version"
)

var (
	serverURL string
	actor     string
	role      string
	apiToken  string
)

var rootCmd = &cobra.Command{
	Use:     "rolloutctl",
	Short:   "Command line interface for the fleet rollout daemon",
	Version: version.String(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if serverURL == "" {
			return fmt.Errorf("server address cannot be empty")
		}
		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("FLEETROLLOUT_SERVER", "http://localhost:8080"), "Rollout daemon address")
	rootCmd.PersistentFlags().StringVar(&actor, "actor", envOr("FLEETROLLOUT_ACTOR", os.Getenv("USER")), "Actor name sent with every request")
	rootCmd.PersistentFlags().StringVar(&role, "role", envOr("FLEETROLLOUT_ROLE", string(v1alpha1.RoleAnalyst)), "Actor role: ADMIN, OPS or ANALYST")
	rootCmd.PersistentFlags().StringVar(&apiToken, "token", os.Getenv("FLEETROLLOUT_API_TOKEN"), "API token")
}

func newClient() *client.RolloutClient {
	c := client.NewRolloutClient(serverURL, &http.Client{Timeout: 15 * time.Second})
	c.Actor = actor
	c.Role = v1alpha1.Role(strings.ToUpper(role))
	c.Token = apiToken
	return c
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
