package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clipvise/clipvise/internal/message"
)

func newStatusCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and clipboard state",
		Long: `Displays the daemon's backend, monitoring state, and clipboard flags.

If a local daemon is running, the request is sent via the IPC Unix socket.
Pass --server to target a specific daemon directly over TCP.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runStatus(cmd, v) },
	}

	cmd.Flags().Bool("json", false, "output raw JSON")
	addClientFlags(cmd)

	return cmd
}

func runStatus(cmd *cobra.Command, v *viper.Viper) error {
	wc, transport, err := dialDaemon(v, cmd.Flags().Changed("server"))
	if err != nil {
		return err
	}
	defer wc.Close()

	resp, err := roundTrip(wc, &message.Message{
		Type:   message.TypeStatus,
		Source: defaultSource(),
	})
	if err != nil {
		return err
	}
	if resp.Type != message.TypeStatusResponse {
		return fmt.Errorf("unexpected response %s", resp.Type)
	}
	if resp.State == nil {
		return errors.New("status response carries no state")
	}

	if v.GetBool("json") {
		enc, _ := json.MarshalIndent(resp, "", "  ")
		fmt.Println(string(enc))
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 1, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Transport:\t%s\n", transport)
	fmt.Fprintf(w, "Daemon:\t%s (%s)\n", resp.Source, resp.Version)
	fmt.Fprintf(w, "Backend:\t%s\n", resp.Backend)
	fmt.Fprintf(w, "Monitoring:\t%v\n", resp.Monitoring)
	fmt.Fprintf(w, "Has text:\t%v\n", resp.State.HasText)
	fmt.Fprintf(w, "Has image:\t%v\n", resp.State.HasImage)
	fmt.Fprintf(w, "Owns clipboard:\t%v\n", resp.State.HasOwnership)
	return w.Flush()
}
