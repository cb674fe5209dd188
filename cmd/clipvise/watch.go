package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clipvise/clipvise/internal/message"
)

const watchPingInterval = 30 * time.Second

func newWatchCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream clipboard change events",
		Long: `Subscribes to the daemon's change-detection events and prints one line
per clipboard change until interrupted. Requires the daemon to run with
monitoring enabled (the default).`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runWatch(cmd, v) },
	}

	cmd.Flags().Bool("json", false, "output events as JSON lines")
	addClientFlags(cmd)

	return cmd
}

func runWatch(cmd *cobra.Command, v *viper.Viper) error {
	wc, _, err := dialDaemon(v, cmd.Flags().Changed("server"))
	if err != nil {
		return err
	}
	defer wc.Close()

	if _, err := roundTrip(wc, &message.Message{
		Type:   message.TypeWatch,
		Source: defaultSource(),
	}); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Keepalives double as liveness checks on an otherwise idle connection.
	go func() {
		t := time.NewTicker(watchPingInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if err := wc.WriteMsg(&message.Message{Type: message.TypePing}); err != nil {
					return
				}
			}
		}
	}()

	// Unblock the read loop on interrupt.
	go func() {
		<-ctx.Done()
		_ = wc.Close()
	}()

	jsonOut := v.GetBool("json")
	for {
		msg, err := wc.ReadMsg()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		switch msg.Type {
		case message.TypeEvent:
			printEvent(msg.Event, jsonOut)
		case message.TypePong:
		default:
		}
	}
}

func printEvent(ev *message.Event, jsonOut bool) {
	if ev == nil {
		return
	}
	if jsonOut {
		enc, _ := json.Marshal(ev)
		fmt.Println(string(enc))
		return
	}
	fmt.Printf("%s  text=%v image=%v owned=%v\n",
		ev.Time.Format("15:04:05.000"), ev.HasText, ev.HasImage, ev.HasOwnership)
}
