package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clipvise/clipvise/internal/message"
)

func newCopyCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "copy",
		Short: "Copy stdin to the clipboard (like pbcopy)",
		Long: `Reads stdin and writes it to the daemon's clipboard.

If a local clipvise daemon is running, it is used directly via the IPC socket.
Otherwise connects to the daemon specified in config or via --server.`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runCopy(cmd, v) },
	}

	cmd.Flags().String("mime", message.MIMEText, "MIME type of the data being copied")
	addClientFlags(cmd)

	return cmd
}

func runCopy(cmd *cobra.Command, v *viper.Viper) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	mime := v.GetString("mime")
	var item message.Item
	if mime == message.MIMEText {
		item = message.NewTextItem(string(data))
	} else {
		item = message.NewBinaryItem(mime, data)
	}

	wc, _, err := dialDaemon(v, cmd.Flags().Changed("server"))
	if err != nil {
		return err
	}
	defer wc.Close()

	_, err = roundTrip(wc, &message.Message{
		Type:   message.TypeSet,
		Source: defaultSource(),
		Items:  []message.Item{item},
	})
	return err
}
