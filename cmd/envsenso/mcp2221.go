package main

import (
	"gopkg.in/yaml.v3"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/envsenso/adapter"
	"github.com/mklimuk/envsenso/cmd/envsenso/console"
)

var mcp2221Cmd = cli.Command{
	Name:  "mcp2221",
	Usage: "inspect the MCP2221 USB bridge",
	Subcommands: cli.Commands{
		&mcp2221StatusCmd,
		&mcp2221ReleaseCmd,
		&mcp2221GPIOCmd,
		&mcp2221ReadyCmd,
	},
}

var mcp2221StatusCmd = cli.Command{
	Name: "status",
	Action: func(c *cli.Context) error {
		status, err := adapter.NewMCP2221().Status(c.Context)
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return encode(status)
	},
}

var mcp2221ReleaseCmd = cli.Command{
	Name:  "release",
	Usage: "cancel the current I2C transfer",
	Action: func(c *cli.Context) error {
		status, err := adapter.NewMCP2221().ReleaseBus(c.Context)
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return encode(status)
	},
}

var mcp2221GPIOCmd = cli.Command{
	Name:  "gpio",
	Usage: "show GP pin levels",
	Action: func(c *cli.Context) error {
		values, err := adapter.NewMCP2221().ReadGPIO(c.Context)
		if err != nil {
			return console.Exit(1, "adapter communication error: %s", console.Red(err))
		}
		return encode(values)
	},
}

var mcp2221ReadyCmd = cli.Command{
	Name:  "ready",
	Usage: "configure a GP pin as the ready line and show its state",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "gp",
			Value: 1,
		},
	},
	Action: func(c *cli.Context) error {
		line, err := adapter.NewMCP2221().Line(c.Int("gp"))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		if err := line.Setup(c.Context); err != nil {
			return console.Exit(1, "could not configure pin: %s", console.Red(err))
		}
		ok, err := line.IsReady(c.Context)
		if err != nil {
			return console.Exit(1, "could not read pin: %s", console.Red(err))
		}
		if ok {
			console.Printf("GP%d: %s\n", c.Int("gp"), console.Green("ready"))
		} else {
			console.Printf("GP%d: %s\n", c.Int("gp"), console.Yellow("busy"))
		}
		return nil
	},
}

func encode(v any) error {
	enc := yaml.NewEncoder(console.Writer())
	defer func() {
		_ = enc.Close()
	}()
	if err := enc.Encode(v); err != nil {
		return console.Exit(1, "encoding error: %s", console.Red(err))
	}
	return nil
}
