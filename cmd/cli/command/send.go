package command

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"vrrelay/pkg/vrevent"
	"vrrelay/pkg/vrnet"
)

var sendType string

// sendCmd sends one event straight to the relay over TCP
var sendCmd = &cobra.Command{
	Use:   "send NAME [VALUE...]",
	Short: "Send one event to the relay",
	Long: `Send one event to the relay over TCP and disconnect.

Examples:
  vrrelayCLI send Button/Down
  vrrelayCLI send Score --type int32 42
  vrrelayCLI send Head/Position --type vector3 0 1.7 0
  vrrelayCLI send Chat --type string hello there`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := parseEvent(args[0], sendType, args[1:])
		if err != nil {
			return err
		}
		if err := sendOne(cmd.Context(), e); err != nil {
			return err
		}
		color.Green("✓ sent %s", e)
		return nil
	},
}

// shutdownCmd sends the shutdown sentinel, which the relay forwards to
// everyone before closing.
var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Stop the relay by sending a Shutdown event",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sendOne(cmd.Context(), vrevent.NewEmpty(vrevent.ShutdownEventName)); err != nil {
			return err
		}
		color.Yellow("Shutdown sent to %s", relayAddr)
		return nil
	},
}

func sendOne(ctx context.Context, e vrevent.Event) error {
	if ctx == nil {
		ctx = context.Background()
	}
	dialCtx, cancel := context.WithTimeout(ctx, ioTimeout)
	defer cancel()

	conn, err := vrnet.Dial(dialCtx, relayAddr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.SendEvent(e, ioTimeout); err != nil {
		return fmt.Errorf("failed to send %q: %w", e.Name(), err)
	}
	return nil
}

func init() {
	sendCmd.Flags().StringVarP(&sendType, "type", "t", "", "payload type: int32, single, vector2, vector3, vector4, quaternion, string")
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(shutdownCmd)
}
