package air

import (
	"encoding/binary"
	"fmt"
)

// PayloadSize is the length of the air data block read from the device.
const PayloadSize = 12

const (
	tempSignMask  = 0x80
	tempValueMask = 0x7F
)

// Payload is the raw air data block.
//
//	+----+----+----+----+----+----+----+----+----+----+----+----+
//	| 11 | 10 |  9 |  8 |  7 |  6 |  5 |  4 |  3 |  2 |  1 |  0 |
//	+----+----+----+----+----+----+----+----+----+----+----+----+
//	| gas               | -  | hum| pressure          | temp    |
//	+----+----+----+----+----+----+----+----+----+----+----+----+
//
// Byte 1 holds the tenths shared by temperature and humidity. Byte 7 is not
// decoded.
type Payload [PayloadSize]byte

// Reading is one decoded measurement.
type Reading struct {
	// Temperature in degrees Celsius, tenths precision.
	Temperature float32
	// Humidity in %RH, tenths precision.
	Humidity float32
	// AirPressure in device units.
	AirPressure int32
	// Gas resistance in device units.
	Gas int32
}

func (r Reading) String() string {
	return fmt.Sprintf("temperature=%.1f humidity=%.1f air_pressure=%d gas=%d",
		r.Temperature, r.Humidity, r.AirPressure, r.Gas)
}

// Decode converts a payload into a Reading.
func Decode(p Payload) Reading {
	tenths := float32(p[1]) / 10.0
	temperature := float32(p[0]&tempValueMask) + tenths
	if p[0]&tempSignMask != 0 {
		temperature = -temperature
	}
	return Reading{
		Temperature: temperature,
		Humidity:    float32(p[6]) + tenths,
		AirPressure: decodeInt32(p[2:6]),
		Gas:         decodeInt32(p[8:12]),
	}
}

// decodeInt32 reads a little-endian two's complement 32-bit integer.
func decodeInt32(b []byte) int32 {
	return int32(binary.LittleEndian.Uint32(b))
}
