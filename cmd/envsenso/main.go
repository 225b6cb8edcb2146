package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"time"

	chlog "github.com/charmbracelet/log"
	"github.com/muesli/termenv"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/envsenso/config"
)

var version string
var commit string
var date string

func main() {
	os.Exit(run())
}

func run() int {
	app := cli.NewApp()
	app.Name = "envsenso"
	app.EnableBashCompletion = true
	app.Version = fmt.Sprintf("%s-%s-%s", version, date, commit)
	app.Usage = "environment sensor cli"
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "enable verbose logging",
		},
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "configuration file",
			Value:   config.DefaultPath(),
			EnvVars: []string{"ENVSENSO_CONFIG"},
		},
		&cli.StringFlag{
			Name:    "adapter",
			Aliases: []string{"a"},
			Usage:   "bus adapter (generic, raspi, nanopi, mcp2221, mock)",
		},
		&cli.StringFlag{
			Name:  "ready-adapter",
			Usage: "ready line adapter, defaults to the bus adapter (adds mcp23017)",
		},
		&cli.StringFlag{
			Name:  "pin",
			Usage: "ready line pin",
		},
	}
	app.Before = func(ctx *cli.Context) error {
		charm := chlog.NewWithOptions(os.Stdout, chlog.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			TimeFormat:      time.DateTime,
		})
		charm.SetColorProfile(termenv.TrueColor)
		charm.SetLevel(chlog.InfoLevel)
		if ctx.Bool("verbose") {
			charm.SetLevel(chlog.DebugLevel)
		}
		slog.SetDefault(slog.New(charm))
		return nil
	}
	app.Commands = cli.Commands{
		&readCmd,
		&publishCmd,
		&watchCmd,
		&mcp2221Cmd,
		&usbCmd,
		&configCmd,
	}
	err := app.Run(os.Args)
	if err != nil {
		var exerr cli.ExitCoder
		if errors.As(err, &exerr) {
			log.Printf("unexpected error: %v", err)
			return exerr.ExitCode()
		}
		return 1
	}
	return 0
}

// loadConfig reads the configuration file and applies the global flag
// overrides. A missing file at the default location is not an error.
func loadConfig(c *cli.Context) (config.Config, error) {
	path := c.String("config")
	cfg, err := config.Load(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) || c.IsSet("config") {
			return cfg, err
		}
		slog.Debug("no config file, using defaults", "path", path)
	}
	if c.IsSet("adapter") {
		cfg.Bus.Adapter = c.String("adapter")
	}
	if c.IsSet("ready-adapter") {
		cfg.Ready.Adapter = c.String("ready-adapter")
	}
	if c.IsSet("pin") {
		cfg.Ready.Pin = c.String("pin")
	}
	return cfg, cfg.Validate()
}
