package command

// root.go defines the root command and the flags every subcommand shares.

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	relayAddr string        // relay TCP address
	apiURL    string        // admin API base URL
	ioTimeout time.Duration // per-frame send/receive timeout
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vrrelayCLI",
	Short: "vrrelayCLI - talk to a VR event relay",
	Long: `vrrelayCLI sends and receives events on a VR event relay and queries its admin API.

Events travel as length-prefixed JSON frames over TCP. Use it to:
- Send a single typed event
- Watch the event stream until the relay shuts down
- Inspect connected clients, event counters and session history
- Log in to the admin API or mint a token from JWT_SECRET

Use "vrrelayCLI command -h" to see all available commands.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err) // Print error to standard error
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&relayAddr, "relay", envOr("VRRELAY_ADDR", "localhost:9034"), "relay TCP address")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", envOr("VRRELAY_API", "http://localhost:9035"), "admin API URL")
	rootCmd.PersistentFlags().DurationVar(&ioTimeout, "timeout", 5*time.Second, "per-frame I/O timeout (0 blocks)")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
