package main

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clipvise/clipvise/internal/message"
)

func newClearCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:     "clear",
		Short:   "Empty the clipboard",
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(cmd *cobra.Command, _ []string) error { return runClear(cmd, v) },
	}

	addClientFlags(cmd)

	return cmd
}

func runClear(cmd *cobra.Command, v *viper.Viper) error {
	wc, _, err := dialDaemon(v, cmd.Flags().Changed("server"))
	if err != nil {
		return err
	}
	defer wc.Close()

	_, err = roundTrip(wc, &message.Message{
		Type:   message.TypeClear,
		Source: defaultSource(),
	})
	return err
}
