package command

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"vrrelay/cmd/cli/command/client"
	"vrrelay/internal/admin"
	"vrrelay/pkg/vrevent"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the admin API is up",
	RunE: func(cmd *cobra.Command, args []string) error {
		health, err := client.NewHTTPClient(apiURL).Health()
		if err != nil {
			return err
		}
		color.Green("✓ %s: %d TCP client(s), %d WebSocket client(s)", health.Status, health.Clients, health.WSClients)
		return nil
	},
}

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "List clients connected to the relay",
	RunE: func(cmd *cobra.Command, args []string) error {
		httpClient, err := authedClient()
		if err != nil {
			return err
		}
		clients, err := httpClient.Clients()
		if err != nil {
			return err
		}
		if len(clients) == 0 {
			color.Yellow("No clients connected")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tADDRESS\tCONNECTED")
		for _, c := range clients {
			fmt.Fprintf(w, "%s\t%s\t%s\n", c.ID, c.Address, time.Since(c.ConnectedAt).Truncate(time.Second))
		}
		return w.Flush()
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show how often each event name was relayed",
	RunE: func(cmd *cobra.Command, args []string) error {
		httpClient, err := authedClient()
		if err != nil {
			return err
		}
		counts, err := httpClient.EventCounts()
		if err != nil {
			return err
		}
		if len(counts) == 0 {
			color.Yellow("No events recorded yet")
			return nil
		}

		names := make([]string, 0, len(counts))
		for name := range counts {
			names = append(names, name)
		}
		// busiest first
		sort.Slice(names, func(i, j int) bool {
			if counts[names[i]] != counts[names[j]] {
				return counts[names[i]] > counts[names[j]]
			}
			return names[i] < names[j]
		})

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "EVENT\tCOUNT")
		for _, name := range names {
			fmt.Fprintf(w, "%s\t%d\n", name, counts[name])
		}
		return w.Flush()
	},
}

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Show recent client sessions from the audit log",
	RunE: func(cmd *cobra.Command, args []string) error {
		httpClient, err := authedClient()
		if err != nil {
			return err
		}
		sessions, err := httpClient.Sessions(sessionsLimit)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ADDRESS\tCONNECTED\tDURATION\tEVENTS")
		for _, s := range sessions {
			duration := "active"
			if s.DisconnectedAt != nil {
				duration = s.DisconnectedAt.Sub(s.ConnectedAt).Truncate(time.Second).String()
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", s.Address, s.ConnectedAt.Local().Format(time.DateTime), duration, s.EventsSent)
		}
		return w.Flush()
	},
}

var injectType string

// injectCmd sends an event through the admin API rather than TCP
var injectCmd = &cobra.Command{
	Use:   "inject NAME [VALUE...]",
	Short: "Inject an event through the admin API",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := parseEvent(args[0], injectType, args[1:])
		if err != nil {
			return err
		}
		httpClient, err := authedClient()
		if err != nil {
			return err
		}

		req, err := eventRequest(e)
		if err != nil {
			return err
		}
		if err := httpClient.InjectEvent(req); err != nil {
			return err
		}
		color.Green("✓ injected %s", e)
		return nil
	},
}

func init() {
	sessionsCmd.Flags().IntVarP(&sessionsLimit, "limit", "n", 20, "number of sessions to show")
	injectCmd.Flags().StringVarP(&injectType, "type", "t", "", "payload type (see 'send -h')")
	rootCmd.AddCommand(healthCmd, clientsCmd, statsCmd, sessionsCmd, injectCmd)
}

// eventRequest converts e into the admin API's body via the wire encoding.
func eventRequest(e vrevent.Event) (admin.EventRequest, error) {
	payload, err := vrevent.Encode(e)
	if err != nil {
		return admin.EventRequest{}, err
	}
	var wire struct {
		Data json.RawMessage `json:"m_Data"`
	}
	if err := json.Unmarshal(payload, &wire); err != nil {
		return admin.EventRequest{}, err
	}
	return admin.EventRequest{Name: e.Name(), Type: e.Type(), Data: wire.Data}, nil
}
