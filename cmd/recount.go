package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recountCmd = &cobra.Command{
	Use:   "recount",
	Short: "Recompute channels.message_count from the messages table",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		store, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer store.Close()

		changed, err := store.RecountChannels(ctx)
		if err != nil {
			return err
		}
		logger.Info("Recounted channel messages", zap.Int64("channels_changed", changed))
		fmt.Printf("%d channel counters corrected\n", changed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recountCmd)
}
