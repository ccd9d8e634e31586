package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/fetalalert/fetalalert/dashboard/internal/export"
	"github.com/fetalalert/fetalalert/pkg/types"
)

func snapshotCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Fetch once and print the rendered view as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			v := a.poller.Refresh(cmd.Context())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		},
	}
}

func exportCmd(configPath *string) *cobra.Command {
	var format, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Fetch once and write every reading in the range to a CSV or XLSX file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != export.FormatCSV && format != export.FormatXLSX {
				return fmt.Errorf("export: unknown format %q: want csv|xlsx", format)
			}

			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()

			v := a.poller.Refresh(cmd.Context())
			if v.Connection.ErrorMessage != "" {
				return fmt.Errorf("export: fetch: %s", v.Connection.ErrorMessage)
			}
			rows := a.poller.Rows()
			if len(rows) == 0 {
				return export.ErrNoRows
			}

			if out == "" {
				out = export.Filename(a.cfg.Dashboard.Export.Filename, format)
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			if err := write(f, format, rows); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			slog.Info("export written", "file", out, "format", format, "rows", len(rows))
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", export.FormatCSV, "output format: csv|xlsx")
	cmd.Flags().StringVar(&out, "out", "", "output file (default: configured export filename)")
	return cmd
}

func write(w io.Writer, format string, rows []types.Row) error {
	if format == export.FormatXLSX {
		return export.WriteXLSX(w, rows)
	}
	return export.WriteCSV(w, rows)
}
