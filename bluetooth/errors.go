package bluetooth

import (
	"errors"
	"fmt"
)

var errUnknownCommand = errors.New("unknown command")

// AdapterNotFoundError means the daemon exposes no adapter object. Fatal at
// startup: nothing else in this package can function without a radio.
type AdapterNotFoundError struct{}

func (e *AdapterNotFoundError) Error() string {
	return "bluetooth: no adapter found"
}

// AgentRegistrationError is non-fatal; pairing degrades to daemon defaults.
type AgentRegistrationError struct {
	Err error
}

func (e *AgentRegistrationError) Error() string {
	return fmt.Sprintf("bluetooth: agent registration failed: %v", e.Err)
}

func (e *AgentRegistrationError) Unwrap() error { return e.Err }

type DeviceNotFoundError struct {
	Address string
}

func (e *DeviceNotFoundError) Error() string {
	return fmt.Sprintf("bluetooth: device %s not found", e.Address)
}

type AlreadyScanningError struct{}

func (e *AlreadyScanningError) Error() string {
	return "bluetooth: discovery already in progress"
}

type PairingFailedError struct {
	Address string
	Err     error
}

func (e *PairingFailedError) Error() string {
	return fmt.Sprintf("bluetooth: pairing with %s failed: %v", e.Address, e.Err)
}

func (e *PairingFailedError) Unwrap() error { return e.Err }

type ConnectionFailedError struct {
	Address string
	Op      string // "connect" or "disconnect"
	Err     error
}

func (e *ConnectionFailedError) Error() string {
	return fmt.Sprintf("bluetooth: %s %s failed: %v", e.Op, e.Address, e.Err)
}

func (e *ConnectionFailedError) Unwrap() error { return e.Err }

type NoActivePlayerError struct{}

func (e *NoActivePlayerError) Error() string {
	return "bluetooth: no active media player"
}

type MediaControlFailedError struct {
	Command string
	Err     error
}

func (e *MediaControlFailedError) Error() string {
	return fmt.Sprintf("bluetooth: media control %q failed: %v", e.Command, e.Err)
}

func (e *MediaControlFailedError) Unwrap() error { return e.Err }

// TransportError wraps any underlying bus failure not otherwise classified.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bluetooth: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
