package osc

import (
	"time"

	gosc "github.com/hypebeast/go-osc/osc"
)

// NewMessage builds a message whose arguments are all float32, the form the
// headband uses for sensor readings.
func NewMessage(address string, args ...float32) *gosc.Message {
	vals := make([]any, len(args))
	for i, a := range args {
		vals[i] = a
	}
	return gosc.NewMessage(address, vals...)
}

// EncodeMessage serialises NewMessage(address, args...).
func EncodeMessage(address string, args ...float32) []byte {
	b, _ := NewMessage(address, args...).MarshalBinary()
	return b
}

// Encode serialises a message with arbitrary go-osc argument types
// (float32, float64, int32, int64, bool, string, []byte).
func Encode(address string, args ...any) ([]byte, error) {
	return gosc.NewMessage(address, args...).MarshalBinary()
}

// EncodeBundle wraps messages or bundles into a bundle stamped now.
func EncodeBundle(packets ...gosc.Packet) ([]byte, error) {
	b, err := NewBundle(packets...)
	if err != nil {
		return nil, err
	}
	return b.MarshalBinary()
}

// NewBundle groups packets into one bundle.
func NewBundle(packets ...gosc.Packet) (*gosc.Bundle, error) {
	b := gosc.NewBundle(time.Now())
	for _, p := range packets {
		if err := b.Append(p); err != nil {
			return nil, err
		}
	}
	return b, nil
}
