package cmd

import (
	"fmt"

	"github.com/ranobe-tools/noveld/internal/storage"

	"github.com/spf13/cobra"
)

var flagEpubDir string

func init() {
	epubCmd := &cobra.Command{
		Use:   "epub",
		Short: "Package the chapter files on disk as an EPUB",
		RunE: func(cmd *cobra.Command, args []string) error {
			if flagEpubDir == "" {
				return fmt.Errorf("missing --dir (the novel folder containing chapters/)")
			}

			writer, err := storage.OpenWriter(flagEpubDir)
			if err != nil {
				return err
			}

			path, err := writer.BuildEpub()
			if err != nil {
				return err
			}

			fmt.Println("EPUB saved to:", path)
			return nil
		},
	}

	epubCmd.Flags().StringVar(&flagEpubDir, "dir", "", "novel folder, e.g. ./output/some-novel")

	rootCmd.AddCommand(epubCmd)
}
