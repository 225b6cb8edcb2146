package gpio

import (
	"context"
	"fmt"

	"github.com/mklimuk/envsenso"
)

// DefaultGobotReadyPin is header pin 11 (BCM GPIO17) in gobot numbering.
const DefaultGobotReadyPin = "11"

var _ envsenso.LineCloser = &GobotLine{}

// DigitalReader is the digital input capability of gobot board adaptors
// (raspi.Adaptor, nanopi.Adaptor...).
type DigitalReader interface {
	DigitalRead(pin string) (int, error)
}

// GobotLine reads the ready line through a gobot board adaptor.
type GobotLine struct {
	reader DigitalReader
	pin    string
}

func NewGobotLine(reader DigitalReader, pin string) *GobotLine {
	return &GobotLine{reader: reader, pin: pin}
}

func (l *GobotLine) IsReady(ctx context.Context) (bool, error) {
	val, err := l.reader.DigitalRead(l.pin)
	if err != nil {
		return false, fmt.Errorf("could not read pin %s: %w", l.pin, err)
	}
	return val == 0, nil
}

// Close is a no-op, pins are released when the adaptor is finalized.
func (l *GobotLine) Close() error {
	return nil
}
