// Package console holds the terminal output helpers of the envsenso CLI.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli/v2"
)

const PictoThermometer = "🌡"
const PictoHumidity = "💧"
const PictoPressure = "🎈"
const PictoGas = "🧪"
const PictoStop = "🚫"

// Available ANSI colors
var (
	Yellow = color.New(color.FgYellow).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	White  = color.New(color.FgHiWhite).SprintFunc()
	Bold   = color.New(color.Bold).SprintFunc()
)

var writer io.Writer = os.Stdout
var errWriter io.Writer = os.Stderr

func SetOutput(w, errw io.Writer) {
	writer = w
	errWriter = errw
}

func Exit(code int, msg string, args ...any) cli.ExitCoder {
	return cli.Exit(fmt.Sprintf(msg, args...), code)
}

func Errorf(msg string, args ...any) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Red("ERROR"), fmt.Sprintf(msg, args...))
}

func Warnf(msg string, args ...any) {
	_, _ = fmt.Fprintf(errWriter, "%s: %s\n", Yellow("WARN"), fmt.Sprintf(msg, args...))
}

func Infof(msg string, args ...any) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", White("..."), fmt.Sprintf(msg, args...))
}

func PInfof(picto, msg string, args ...any) {
	_, _ = fmt.Fprintf(writer, "%s %s\n", picto, fmt.Sprintf(msg, args...))
}

func Printf(msg string, args ...any) {
	_, _ = fmt.Fprintf(writer, msg, args...)
}

// Writer is the standard output, for encoders.
func Writer() io.Writer {
	return writer
}
