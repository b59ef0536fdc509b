package command

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"riskdash/internal/amqp"
	"riskdash/internal/backend"
	"riskdash/internal/export"
	"riskdash/internal/render"
)

func (a *App) exportCmd() *cobra.Command {
	var (
		qf      queryFlags
		formats []string
		dir     string
		name    string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the dashboard as csv, json or pdf reports",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fs := make([]export.Format, 0, len(formats))
			for _, v := range formats {
				f, err := export.ParseFormat(v)
				if err != nil {
					return err
				}
				if !slices.Contains(fs, f) {
					fs = append(fs, f)
				}
			}
			q, err := qf.query()
			if err != nil {
				return err
			}
			svc, renderer, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			d, err := svc.Dashboard(cmd.Context(), q)
			if err != nil {
				return err
			}

			report := export.Report{Title: "Risk dashboard " + d.Year, Dashboard: d}
			if slices.Contains(fs, export.FormatPDF) {
				report.Charts = make(map[string][]byte, len(render.Names()))
				panels := render.Panels{Monthly: d.Monthly, Risk: d.Risk, Age: d.Age}
				for _, chart := range render.Names() {
					png, err := renderer.PNG(chart, panels)
					if err != nil {
						return err
					}
					report.Charts[chart] = png
				}
			}

			for _, f := range fs {
				path, err := export.WriteFile(dir, name, f, report)
				if err != nil {
					return err
				}
				a.con.Success("%s report saved to %s", strings.ToUpper(string(f)), path)
			}
			return nil
		},
	}
	qf.register(cmd)
	cmd.Flags().StringSliceVarP(&formats, "format", "t", []string{"csv"}, "Report formats: csv, json, pdf")
	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Output directory (default: current directory)")
	cmd.Flags().StringVarP(&name, "name", "n", "", "Base name of the report files")
	return cmd
}

func (a *App) chartCmd() *cobra.Command {
	var (
		qf  queryFlags
		out string
	)
	cmd := &cobra.Command{
		Use:       "chart <" + strings.Join(render.Names(), "|") + ">",
		Short:     "Render one dashboard chart as PNG",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: render.Names(),
		RunE: func(cmd *cobra.Command, args []string) error {
			chart := args[0]
			q, err := qf.query()
			if err != nil {
				return err
			}
			svc, renderer, err := a.service(cmd.Context())
			if err != nil {
				return err
			}

			var panels render.Panels
			switch chart {
			case render.ChartMonthly:
				s, err := svc.Monthly(cmd.Context(), q)
				if err != nil {
					return err
				}
				panels.Monthly = &s
			case render.ChartRisk:
				s, err := svc.Risk(cmd.Context(), q)
				if err != nil {
					return err
				}
				panels.Risk = &s
			case render.ChartAge:
				s, err := svc.Age(cmd.Context(), q)
				if err != nil {
					return err
				}
				panels.Age = &s
			}

			if out == "" {
				out = fmt.Sprintf("%s_%s.png", chart, strings.ToLower(q.Year.String()))
			}
			if dir := filepath.Dir(out); dir != "." {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					return fmt.Errorf("create output directory: %w", err)
				}
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create chart file: %w", err)
			}
			if err := renderer.Chart(f, chart, panels); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("close chart file: %w", err)
			}
			a.con.Success("Chart saved to %s", out)
			return nil
		},
	}
	qf.register(cmd)
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output PNG path (default: <chart>_<year>.png)")
	return cmd
}

func (a *App) importCmd() *cobra.Command {
	var location string
	cmd := &cobra.Command{
		Use:   "import <csv|sheets|s3|postgres>",
		Short: "Queue an import of a dataset into the snapshot store",
		Long: `Publishes an import request for riskdash-worker. The location depends on the source:

  csv       file path
  s3        s3://bucket/key
  sheets    spreadsheetID or spreadsheetID/sheet
  postgres  table name

An empty location imports the configured default of the source.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := backend.BackendType(strings.ToLower(args[0]))
			if !source.IsValid() || source == backend.SQLiteBackend {
				return fmt.Errorf("unsupported import source %q", args[0])
			}
			req := amqp.NewImportRequest(source.String(), location)
			if err := req.Validate(); err != nil {
				return err
			}
			pub, err := a.publisher()
			if err != nil {
				return err
			}
			if err := pub.PublishImportRequest(cmd.Context(), req); err != nil {
				return fmt.Errorf("publish import request: %w", err)
			}
			a.con.Success("Import %s queued (%s %s)", req.ID, req.Source, req.Location)
			return nil
		},
	}
	cmd.Flags().StringVarP(&location, "location", "l", "", "Dataset location for the source")
	return cmd
}
