package dashboard

import (
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/zalepa/crimedash/aggregate"
	"github.com/zalepa/crimedash/chart"
	"gopkg.in/yaml.v3"
)

// Config tunes both dashboard views. It is read from an optional YAML file.
type Config struct {
	// Palette overrides the view's default palette when set.
	Palette     chart.Palette         `yaml:"palette"`
	YearOrder   aggregate.KeyOrder    `yaml:"year_order"`
	MonthPolicy aggregate.MonthPolicy `yaml:"month_policy"`
	TopN        int                   `yaml:"top_n"`
	// ArrestRate enables the arrest-rate chart of the user view.
	ArrestRate bool `yaml:"arrest_rate"`
}

func DefaultConfig() Config {
	return Config{
		YearOrder:   aggregate.Numeric,
		MonthPolicy: aggregate.DropMonths,
		TopN:        4,
		ArrestRate:  true,
	}
}

// LoadConfig reads path over the defaults. An empty path returns the
// defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, goerr.Wrap(err, "failed to read dashboard config", goerr.V("path", path))
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, goerr.Wrap(err, "failed to parse dashboard config", goerr.V("path", path))
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, goerr.Wrap(err, "invalid dashboard config", goerr.V("path", path))
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Palette {
	case "", chart.Bright, chart.Hue:
	default:
		return goerr.New("unknown palette", goerr.V("palette", c.Palette))
	}
	switch c.YearOrder {
	case aggregate.Lexical, aggregate.Numeric:
	default:
		return goerr.New("unknown year order", goerr.V("year_order", c.YearOrder))
	}
	switch c.MonthPolicy {
	case aggregate.DropMonths, aggregate.ClampMonths, aggregate.RejectMonths:
	default:
		return goerr.New("unknown month policy", goerr.V("month_policy", c.MonthPolicy))
	}
	if c.TopN < 1 {
		return goerr.New("top_n must be positive", goerr.V("top_n", c.TopN))
	}
	return nil
}

func (c Config) palette(v View) chart.Palette {
	if c.Palette != "" {
		return c.Palette
	}
	if v == Admin {
		return chart.Hue
	}
	return chart.Bright
}
