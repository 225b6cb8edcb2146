package main

import (
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/envsenso/cmd/envsenso/console"
	"github.com/mklimuk/envsenso/config"
	"github.com/mklimuk/envsenso/publish"
)

var feedFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "feed",
		Usage:   "iotplotter feed id",
		EnvVars: []string{"ENVSENSO_FEED"},
	},
	&cli.StringFlag{
		Name:    "key",
		Usage:   "iotplotter api key",
		EnvVars: []string{"ENVSENSO_KEY"},
	},
}

var publishCmd = cli.Command{
	Name:  "publish",
	Usage: "acquire a reading and post it to an iotplotter feed",
	Flags: feedFlags,
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		applyFeedFlags(c, &cfg)
		if cfg.IoTPlotter.Feed == "" {
			return console.Exit(1, "feed id is required (--feed or iotplotter.feed)")
		}
		hw := newHardware(cfg)
		defer closeHardware(hw)
		r, err := hw.acquirer().Acquire(c.Context)
		if err != nil {
			return console.Exit(1, "acquisition error: %s", console.Red(err))
		}
		printReading(r)
		res, err := newPlotter(cfg).Publish(c.Context, r)
		if err != nil {
			return console.Exit(1, "could not publish: %s", console.Red(err))
		}
		console.Printf("%s\n", res)
		return nil
	},
}

func applyFeedFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("feed") {
		cfg.IoTPlotter.Feed = c.String("feed")
	}
	if c.IsSet("key") {
		cfg.IoTPlotter.Key = c.String("key")
	}
}

func newPlotter(cfg config.Config) *publish.IoTPlotter {
	return publish.NewIoTPlotter(cfg.IoTPlotter.Feed, cfg.IoTPlotter.Key,
		publish.WithBaseURL(cfg.IoTPlotter.URL),
		publish.WithTimeout(cfg.IoTPlotter.Timeout),
	)
}
