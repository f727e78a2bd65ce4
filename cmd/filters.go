package cmd

import (
	"context"
	"log/slog"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
	"github.com/zalepa/crimedash/dashboard"
	"github.com/zalepa/crimedash/filter"
	"github.com/zalepa/crimedash/incident"
)

// filterConfig picks a dashboard view and the selection applied to it.
// Filter flags repeat; the user view takes at most one value per dimension.
type filterConfig struct {
	View       string
	Years      []string
	CrimeTypes []string
	States     []string
}

func (f *filterConfig) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "view",
			Usage:       "Dashboard view (admin, user)",
			Value:       string(dashboard.Admin),
			Destination: &f.View,
		},
		&cli.StringSliceFlag{
			Name:        "year",
			Usage:       "Year filter, repeatable",
			Category:    "Filters",
			Destination: &f.Years,
		},
		&cli.StringSliceFlag{
			Name:        "crime-type",
			Usage:       "Crime type filter, repeatable",
			Category:    "Filters",
			Destination: &f.CrimeTypes,
		},
		&cli.StringSliceFlag{
			Name:        "state",
			Usage:       "State filter, repeatable",
			Category:    "Filters",
			Destination: &f.States,
		},
	}
}

func (f filterConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("view", f.View),
		slog.String("year", strings.Join(f.Years, ",")),
		slog.String("crime_type", strings.Join(f.CrimeTypes, ",")),
		slog.String("state", strings.Join(f.States, ",")),
	)
}

func (f *filterConfig) selection() map[incident.Dimension][]string {
	return map[incident.Dimension][]string{
		incident.Year:      f.Years,
		incident.CrimeType: f.CrimeTypes,
		incident.State:     f.States,
	}
}

// Configure loads the dataset into a controller for the chosen view and
// applies the selection. Unlike the web server, a load failure is an error
// here: there is nothing to show.
func (f *filterConfig) Configure(ctx context.Context, data *datasetConfig) (*dashboard.Controller, error) {
	view := dashboard.View(f.View)
	if !view.Valid() {
		return nil, goerr.New("invalid view", goerr.V("view", f.View), goerr.T(filter.ErrTagInvalidInput))
	}

	cfg, err := data.Configure()
	if err != nil {
		return nil, err
	}

	c := dashboard.New(view, cfg)
	if err := c.Load(ctx, incident.NewLoader(), data.Source); err != nil {
		return nil, goerr.Wrap(err, "failed to load dataset", goerr.V("source", data.Source))
	}

	sel := f.selection()
	if view == dashboard.Admin {
		for _, d := range incident.FilterDimensions {
			for _, v := range sel[d] {
				on, err := c.Toggle(ctx, d, v)
				if err != nil {
					return nil, err
				}
				if !on {
					return nil, goerr.New("filter value given twice", goerr.V("dimension", d), goerr.V("value", v), goerr.T(filter.ErrTagInvalidInput))
				}
			}
		}
		return c, nil
	}

	choices := make(map[incident.Dimension]string)
	for _, d := range incident.FilterDimensions {
		switch len(sel[d]) {
		case 0:
		case 1:
			choices[d] = sel[d][0]
		default:
			return nil, goerr.New("user view takes one value per filter", goerr.V("dimension", d), goerr.V("values", sel[d]), goerr.T(filter.ErrTagInvalidInput))
		}
	}
	if err := c.SetFilters(ctx, choices); err != nil {
		return nil, err
	}
	return c, nil
}
