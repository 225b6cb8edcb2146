package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/karalabe/hid"
	"github.com/urfave/cli/v2"

	"github.com/mklimuk/envsenso/adapter"
	"github.com/mklimuk/envsenso/cmd/envsenso/console"
)

// knownBridges are the USB bridges the bus can be driven through.
var knownBridges = map[[2]uint16]string{
	{adapter.VendorID, adapter.ProductID}: "MCP2221",
}

var usbCmd = cli.Command{
	Name:  "usb",
	Usage: "list HID devices",
	Subcommands: cli.Commands{
		&usbLsCmd,
		&usbDetectCmd,
	},
}

var usbLsCmd = cli.Command{
	Name: "ls",
	Action: func(c *cli.Context) error {
		w := tabwriter.NewWriter(console.Writer(), 24, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "PATH\tSERIAL\tVENDOR\tPRODUCT ID\tMANUFACTURER\tPRODUCT\n")
		for _, dev := range hid.Enumerate(0, 0) {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%#x\t%#x\t%s\t%s\n",
				dev.Path, dev.Serial, dev.VendorID, dev.ProductID, dev.Manufacturer, dev.Product)
		}
		return w.Flush()
	},
}

var usbDetectCmd = cli.Command{
	Name:  "detect",
	Usage: "list attached bridges usable as the sensor bus",
	Action: func(c *cli.Context) error {
		w := tabwriter.NewWriter(console.Writer(), 24, 0, 1, ' ', 0)
		_, _ = fmt.Fprintf(w, "ID\tVENDOR\tPRODUCT\tDEVICE\tPATH\n")
		found := 0
		for _, dev := range hid.Enumerate(0, 0) {
			name, ok := knownBridges[[2]uint16{dev.VendorID, dev.ProductID}]
			if !ok {
				continue
			}
			_, _ = fmt.Fprintf(w, "%d\t%#x\t%#x\t%s\t%s\n", found, dev.VendorID, dev.ProductID, name, dev.Path)
			found++
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if found == 0 {
			console.Warnf("no supported bridge attached")
		}
		return nil
	},
}
