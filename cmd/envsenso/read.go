package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/envsenso/air"
	"github.com/mklimuk/envsenso/cmd/envsenso/console"
)

var readCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Usage:   "acquire a single reading",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		hw := newHardware(cfg)
		defer closeHardware(hw)
		r, err := hw.acquirer().Acquire(c.Context)
		if err != nil {
			return console.Exit(1, "acquisition error: %s", console.Red(err))
		}
		printReading(r)
		return nil
	},
}

func printReading(r air.Reading) {
	console.PInfof(console.PictoThermometer, "temperature: %s °C", console.White(r.Temperature))
	console.PInfof(console.PictoHumidity, "humidity: %s %%RH", console.White(r.Humidity))
	console.PInfof(console.PictoPressure, "air pressure: %s", console.White(r.AirPressure))
	console.PInfof(console.PictoGas, "gas: %s", console.White(r.Gas))
}

func closeHardware(hw *hardware) {
	if err := hw.Close(); err != nil {
		console.Errorf("error closing adaptor: %s", console.Red(err))
	}
}

// acquireFunc is satisfied by air.Acquirer.Acquire and by mock sensors.
type acquireFunc func(ctx context.Context) (air.Reading, error)
