package air

import "time"

// Bus protocol defaults of the air data sensor.
const (
	DefaultAddress        byte = 0x71
	DefaultResetCommand   byte = 0xE2
	DefaultRequestCommand byte = 0xE1
	DefaultDataRegister   byte = 0x10
	DefaultSettleDelay         = 10 * time.Millisecond
)

// Profile describes how to talk to one device revision. The zero value is not
// usable, start from DefaultProfile.
type Profile struct {
	Address        byte
	ResetCommand   byte
	RequestCommand byte
	DataRegister   byte
	// SettleDelay is slept after the reset and the request commands.
	SettleDelay time.Duration
}

func DefaultProfile() Profile {
	return Profile{
		Address:        DefaultAddress,
		ResetCommand:   DefaultResetCommand,
		RequestCommand: DefaultRequestCommand,
		DataRegister:   DefaultDataRegister,
		SettleDelay:    DefaultSettleDelay,
	}
}

type Opt func(*Profile)

func WithProfile(p Profile) Opt {
	return func(o *Profile) {
		*o = p
	}
}

func WithAddress(address byte) Opt {
	return func(o *Profile) {
		o.Address = address
	}
}

func WithCommands(reset, request byte) Opt {
	return func(o *Profile) {
		o.ResetCommand = reset
		o.RequestCommand = request
	}
}

func WithDataRegister(register byte) Opt {
	return func(o *Profile) {
		o.DataRegister = register
	}
}

func WithSettleDelay(delay time.Duration) Opt {
	return func(o *Profile) {
		o.SettleDelay = delay
	}
}
