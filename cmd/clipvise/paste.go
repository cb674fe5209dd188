package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clipvise/clipvise/internal/message"
)

func newPasteCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "paste",
		Short: "Print the clipboard to stdout (like pbpaste)",
		Long: `Fetches the daemon's clipboard and writes it to stdout.

Text is printed as-is. With --mime, the raw bytes of that representation are
written instead (e.g. --mime image/png > shot.png).`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runPaste(cmd, v) },
	}

	cmd.Flags().String("mime", message.MIMEText, "MIME type to paste")
	addClientFlags(cmd)

	return cmd
}

func runPaste(cmd *cobra.Command, v *viper.Viper) error {
	wc, _, err := dialDaemon(v, cmd.Flags().Changed("server"))
	if err != nil {
		return err
	}
	defer wc.Close()

	resp, err := roundTrip(wc, &message.Message{
		Type:   message.TypeGet,
		Source: defaultSource(),
	})
	if err != nil {
		return err
	}

	mime := v.GetString("mime")
	item, ok := resp.ItemOf(mime)
	if !ok {
		return fmt.Errorf("clipboard has no %s content", mime)
	}
	data, err := item.Decode()
	if err != nil {
		return fmt.Errorf("decode item: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}
