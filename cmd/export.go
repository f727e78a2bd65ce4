package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"github.com/zalepa/crimedash/filter"
	"github.com/zalepa/crimedash/report"
)

func cmdExport() *cli.Command {
	var (
		dataCfg   datasetConfig
		filterCfg filterConfig
		format    string
		out       string
	)

	return &cli.Command{
		Name:  "export",
		Usage: "Write a dashboard to a PDF or XLSX file",
		Flags: joinFlags(
			dataCfg.Flags(),
			filterCfg.Flags(),
			[]cli.Flag{
				&cli.StringFlag{
					Name:        "format",
					Usage:       "Output format (pdf, xlsx)",
					Value:       "pdf",
					Destination: &format,
				},
				&cli.StringFlag{
					Name:        "out",
					Usage:       "Output file path (default dashboard.<format>)",
					Destination: &out,
				},
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			logger := ctxlog.From(ctx)

			if format != "pdf" && format != "xlsx" {
				return goerr.New("invalid export format", goerr.V("format", format), goerr.T(filter.ErrTagInvalidInput))
			}
			if out == "" {
				out = "dashboard." + format
			}

			ctrl, err := filterCfg.Configure(ctx, &dataCfg)
			if err != nil {
				return err
			}
			snap := ctrl.Snapshot()

			switch format {
			case "pdf":
				if err := report.WritePDF(out, snap); err != nil {
					return err
				}
				doc, err := report.Inspect(out)
				if err != nil {
					return err
				}
				logger.Info("Exported PDF", slog.String("path", out), slog.Int("pages", doc.Pages))
			case "xlsx":
				if err := report.WriteXLSX(out, snap); err != nil {
					return err
				}
				logger.Info("Exported workbook", slog.String("path", out), slog.Int("sheets", 1+len(snap.Charts)))
			}

			fmt.Fprintf(c.Root().Writer, "wrote %s\n", out)
			return nil
		},
	}
}
