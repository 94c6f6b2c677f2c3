package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dawon-meat/trace-cli/internal/barcode"
	"github.com/dawon-meat/trace-cli/internal/importer"
	"github.com/dawon-meat/trace-cli/internal/ingest"
	"github.com/dawon-meat/trace-cli/internal/model"
	"github.com/dawon-meat/trace-cli/internal/resolve"
)

var certifyFile string

var certifyCmd = &cobra.Command{
	Use:   "certify [numbers...]",
	Short: "Resolve grading certificates for trace numbers or an imported file",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows := ingest.NewStore()

		if certifyFile != "" {
			decoder, err := barcode.NewDecoder(cfg.Barcode)
			if err != nil {
				return err
			}
			records, _, err := importer.New(decoder).ImportFile(cmd.Context(), certifyFile)
			if err != nil {
				return err
			}
			rows.Add(records)
		}
		for _, n := range args {
			rows.Add([]model.TraceRecord{{
				TraceNumber: model.NormalizeTraceNumber(n),
				BreedLabel:  "-",
				BirthDate:   "-",
			}})
		}
		if rows.Len() == 0 {
			return fmt.Errorf("nothing to certify: pass numbers or --file")
		}

		engine := resolve.NewEngine(newLookupClient(cfg.Mtrace), cfg.Mtrace.MaxConcurrent)
		resolution := engine.Resolve(cmd.Context(), rows.Rows())

		// Live progress over distinct-number completion.
		for !resolution.Ready() {
			loaded, total := resolution.Progress()
			fmt.Printf("\rresolving %d/%d", loaded, total)
			select {
			case <-cmd.Context().Done():
				return cmd.Context().Err()
			case <-time.After(200 * time.Millisecond):
			}
		}
		fmt.Println()

		for _, rr := range resolution.Results() {
			switch rr.Status {
			case resolve.StatusSuccess:
				printCertificate(rr)
			case resolve.StatusError:
				fmt.Printf("%-14s  ERROR    %s\n", rr.Row.TraceNumber, rr.Message)
			case resolve.StatusSkipped:
				fmt.Printf("%-14s  SKIPPED  %s\n", rr.Row.TraceNumber, rr.Message)
			}
		}
		return nil
	},
}

func printCertificate(rr resolve.RowResult) {
	cert := rr.Cert
	fmt.Printf("%-14s  OK       %d issue(s)", rr.Row.TraceNumber, len(cert.Issues))
	if len(cert.Grades) > 0 {
		g := cert.Grades[0]
		fmt.Printf("  grade=%s marbling=%s", g.QualityGrade, g.MarblingScore)
	}
	if cert.PendingNotice != "" {
		fmt.Printf("  [%s]", cert.PendingNotice)
	}
	fmt.Println()
}

func init() {
	certifyCmd.Flags().StringVarP(&certifyFile, "file", "f", "", "import file to certify")
	rootCmd.AddCommand(certifyCmd)
}
