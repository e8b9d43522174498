package command

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"vrrelay/cmd/cli/authentication"
	"vrrelay/cmd/cli/command/client"
	"vrrelay/pkg/vrevent"
	"vrrelay/pkg/vrnet"
)

var (
	listenWS    bool
	listenCount int
)

// listenCmd prints the event stream
var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Print events from the relay until it shuts down",
	Long: `Connect to the relay and print every event received.

Stops when a Shutdown event arrives, after --count events, or on Ctrl+C.
With --ws the stream is read from the admin API's WebSocket bridge
instead of TCP, using the token saved by 'vrrelayCLI login'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		seen := 0
		handle := func(e vrevent.Event) {
			printEvent(e)
			seen++
			if listenCount > 0 && seen >= listenCount {
				cancel()
			}
		}

		var err error
		if listenWS {
			creds, credErr := authentication.Load(apiURL)
			if credErr != nil {
				return credErr
			}
			fmt.Printf("🔌 Listening on %s/vrevent\n", apiURL)
			err = client.FollowWebSocket(ctx, apiURL, creds.AccessToken, handle)
		} else {
			err = followTCP(ctx, handle)
		}

		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

func followTCP(ctx context.Context, handle func(vrevent.Event)) error {
	dialCtx, cancel := context.WithTimeout(ctx, ioTimeout)
	conn, err := vrnet.Dial(dialCtx, relayAddr)
	cancel()
	if err != nil {
		return err
	}
	defer conn.Close()

	fmt.Printf("🔌 Listening on %s\n", conn.Description())
	return conn.Follow(ctx, handle)
}

func printEvent(e vrevent.Event) {
	if vrevent.IsShutdown(e.Name()) {
		color.Red("⏻ %s", e)
		return
	}
	if e.Type() == vrevent.TypeNone {
		color.HiBlack("%s", e)
		return
	}
	color.Cyan("%s", e)
}

func init() {
	listenCmd.Flags().BoolVar(&listenWS, "ws", false, "read through the WebSocket bridge")
	listenCmd.Flags().IntVarP(&listenCount, "count", "n", 0, "exit after this many events (0 = unlimited)")
	rootCmd.AddCommand(listenCmd)
}
