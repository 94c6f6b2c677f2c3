package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dawon-meat/trace-cli/internal/barcode"
	"github.com/dawon-meat/trace-cli/internal/importer"
	"github.com/dawon-meat/trace-cli/internal/ingest"
)

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import trace numbers from spreadsheet, scanner text, or label image files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		decoder, err := barcode.NewDecoder(cfg.Barcode)
		if err != nil {
			return err
		}
		im := importer.New(decoder)
		rows := ingest.NewStore()

		for _, path := range args {
			records, labelSkipped, err := im.ImportFile(cmd.Context(), path)
			if err != nil {
				zap.L().Warn("import: file skipped", zap.String("file", path), zap.Error(err))
				fmt.Printf("%s: %v\n", path, err)
				continue
			}

			res := rows.Add(records)
			res.Excluded += labelSkipped
			fmt.Printf("%s: %s\n", path, res.Summary())
		}

		for _, row := range rows.Rows() {
			fmt.Printf("%4d  %-14s  %-30s  %s\n", row.ID, row.TraceNumber, row.BreedLabel, row.BirthDate)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}
