package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/dawon-meat/trace-cli/internal/report"
	"github.com/dawon-meat/trace-cli/internal/store"
)

var (
	reportMonth string
	reportOut   string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export monthly production logs as an XLSX report",
	RunE: func(cmd *cobra.Command, args []string) error {
		month := reportMonth
		if month == "" {
			month = time.Now().UTC().Format("2006-01")
		}
		out := reportOut
		if out == "" {
			out = fmt.Sprintf("production-%s.xlsx", month)
		}

		st, err := openStore(cmd.Context(), cfg.Store)
		if err != nil {
			return err
		}
		defer st.Close()

		logs, err := st.ListLogs(cmd.Context(), store.LogFilter{Month: month})
		if err != nil {
			return err
		}
		if len(logs) == 0 {
			return eris.Errorf("no production logs for %s", month)
		}

		if err := report.WriteMonthly(logs, month, cfg.Report.SheetName, out); err != nil {
			return err
		}

		fmt.Printf("wrote %s (%d rows)\n", out, len(logs))
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportMonth, "month", "", "month to export (YYYY-MM, default current)")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "output path (default production-<month>.xlsx)")
	rootCmd.AddCommand(reportCmd)
}
