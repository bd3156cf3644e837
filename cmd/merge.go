package cmd

import (
	"os"
	"os/signal"

	"github.com/4Lajf/karczma-wrapped/merge"

	"github.com/spf13/cobra"
)

var mergeOutput string

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge every export in the input directory into one document",
	Long: `Writes {"meta":{...},"guild":{...},"messages":[...]} with each message tagged
by the channel of the file it came from. The guild is taken from the first file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		output := cfg.Merge.Output
		if mergeOutput != "" {
			output = mergeOutput
		}

		_, err := merge.New(logger).MergeDir(ctx, cfg.InputDir, output)
		return err
	},
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "Output file (overrides merge.output)")
	rootCmd.AddCommand(mergeCmd)
}
