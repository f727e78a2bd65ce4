package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"github.com/zalepa/crimedash/incident"
)

func cmdConvert() *cli.Command {
	var out string

	return &cli.Command{
		Name:      "convert",
		Usage:     "Convert a CSV export into the dataset JSON format",
		ArgsUsage: "<in.csv>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "out",
				Usage:       "Output JSON file (default: input name with .json, - for stdout)",
				Destination: &out,
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			in := c.Args().First()
			if in == "" {
				return goerr.New("convert needs an input CSV file")
			}
			if out == "" {
				out = strings.TrimSuffix(in, ".csv") + ".json"
			}

			r, err := os.Open(in)
			if err != nil {
				return goerr.Wrap(err, "failed to open csv", goerr.V("path", in))
			}
			defer r.Close()

			var w io.Writer = c.Root().Writer
			if out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return goerr.Wrap(err, "failed to create output", goerr.V("path", out))
				}
				defer f.Close()
				w = f
			}

			n, err := incident.ConvertCSV(r, w)
			if err != nil {
				return goerr.Wrap(err, "failed to convert csv", goerr.V("path", in))
			}
			ctxlog.From(ctx).Info("Converted dataset", slog.String("in", in), slog.String("out", out), slog.Int("records", n))
			if out != "-" {
				fmt.Fprintf(c.Root().Writer, "wrote %d records to %s\n", n, out)
			}
			return nil
		},
	}
}
