package cmd

import (
	"fmt"

	"github.com/ranobe-tools/noveld/internal/storage"

	"github.com/spf13/cobra"
)

var flagMergeDir string

func init() {
	mergeCmd := &cobra.Command{
		Use:   "merge",
		Short: "Rebuild the combined full.txt from the chapter files on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagMergeDir == "" {
				return fmt.Errorf("missing --dir (the novel folder containing chapters/)")
			}

			writer, err := storage.OpenWriter(flagMergeDir)
			if err != nil {
				return err
			}

			merged, err := writer.Merge()
			if err != nil {
				return err
			}

			fmt.Println("Merged novel saved to:", merged)
			return nil
		},
	}

	mergeCmd.Flags().StringVar(&flagMergeDir, "dir", "", "novel folder, e.g. ./output/some-novel")

	rootCmd.AddCommand(mergeCmd)
}
