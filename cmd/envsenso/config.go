package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/envsenso/cmd/envsenso/console"
	"github.com/mklimuk/envsenso/config"
)

var configCmd = cli.Command{
	Name:  "config",
	Usage: "manage the configuration file",
	Subcommands: cli.Commands{
		&configInitCmd,
		&configShowCmd,
	},
}

var configShowCmd = cli.Command{
	Name:  "show",
	Usage: "print the effective configuration",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		return encode(cfg)
	},
}

var configInitCmd = cli.Command{
	Name:  "init",
	Usage: "interactively create the configuration file",
	Action: func(c *cli.Context) error {
		path := c.String("config")
		cfg, err := config.Load(path)
		if err == nil {
			answer, err := console.YesOrNo(fmt.Sprintf("%s exists, overwrite?", path))
			if err != nil || answer != console.Yes {
				return nil
			}
		}
		cfg, err = askConfig(cfg)
		if err != nil {
			return console.Exit(1, "input error: %s", console.Red(err))
		}
		if err := cfg.Validate(); err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		if err := config.Save(path, cfg); err != nil {
			return console.Exit(1, "could not save configuration: %s", console.Red(err))
		}
		console.Infof("configuration written to %s", console.Green(path))
		return nil
	},
}

func askConfig(cfg config.Config) (config.Config, error) {
	var err error
	ask := func(question string, value *string) {
		if err != nil {
			return
		}
		*value, err = console.Ask(question, *value)
	}
	ask("bus adapter (generic, raspi, nanopi, mcp2221, mock)", &cfg.Bus.Adapter)
	if cfg.Bus.Adapter == config.AdapterGeneric {
		ask("i2c device", &cfg.Bus.Device)
	}
	ask("ready line adapter (empty for the bus adapter)", &cfg.Ready.Adapter)
	pin := cfg.ReadyPin()
	ask("ready line pin", &pin)
	cfg.Ready.Pin = pin

	address := fmt.Sprintf("%#04x", uint8(cfg.Device.Address))
	ask("sensor address", &address)
	timeout := cfg.Ready.Timeout.String()
	ask("ready timeout (0 waits forever)", &timeout)
	ask("iotplotter feed", &cfg.IoTPlotter.Feed)
	ask("iotplotter api key", &cfg.IoTPlotter.Key)
	if err != nil {
		return cfg, err
	}

	v, err := strconv.ParseUint(address, 0, 7)
	if err != nil {
		return cfg, fmt.Errorf("invalid address %q: %w", address, err)
	}
	cfg.Device.Address = config.Byte(v)
	cfg.Ready.Timeout, err = time.ParseDuration(timeout)
	if err != nil {
		return cfg, fmt.Errorf("invalid timeout %q: %w", timeout, err)
	}
	return cfg, nil
}
