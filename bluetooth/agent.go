package bluetooth

import (
	"log"

	"github.com/godbus/dbus/v5"
)

// pairingAgent answers daemon-initiated pairing challenges. Every challenge is
// auto-accepted: this is a single-owner in-vehicle device, so frictionless
// pairing is preferred over explicit confirmation prompts.
type pairingAgent struct{}

func (a *pairingAgent) Release() *dbus.Error {
	log.Println("AGENT: released")
	return nil
}

func (a *pairingAgent) RequestPinCode(device dbus.ObjectPath) (string, *dbus.Error) {
	log.Printf("AGENT: RequestPinCode for %s, answering %s", device, FALLBACK_PIN_CODE)
	return FALLBACK_PIN_CODE, nil
}

func (a *pairingAgent) DisplayPinCode(device dbus.ObjectPath, pincode string) *dbus.Error {
	log.Printf("AGENT: DisplayPinCode for %s: %s", device, pincode)
	return nil
}

func (a *pairingAgent) RequestPasskey(device dbus.ObjectPath) (uint32, *dbus.Error) {
	log.Printf("AGENT: RequestPasskey for %s, answering %06d", device, FALLBACK_PASSKEY)
	return FALLBACK_PASSKEY, nil
}

func (a *pairingAgent) DisplayPasskey(device dbus.ObjectPath, passkey uint32, entered uint16) *dbus.Error {
	log.Printf("AGENT: DisplayPasskey for %s: %06d (entered %d)", device, passkey, entered)
	return nil
}

func (a *pairingAgent) RequestConfirmation(device dbus.ObjectPath, passkey uint32) *dbus.Error {
	log.Printf("AGENT: auto-confirming passkey %06d for %s", passkey, device)
	return nil
}

func (a *pairingAgent) RequestAuthorization(device dbus.ObjectPath) *dbus.Error {
	log.Printf("AGENT: auto-authorizing %s", device)
	return nil
}

func (a *pairingAgent) AuthorizeService(device dbus.ObjectPath, uuid string) *dbus.Error {
	log.Printf("AGENT: auto-authorizing service %s for %s", uuid, device)
	return nil
}

func (a *pairingAgent) Cancel() *dbus.Error {
	log.Println("AGENT: request cancelled")
	return nil
}

// registerAgent exports the pairing agent and makes it the default agent.
// Callers treat failure as non-fatal: without an agent, pairing falls back to
// daemon defaults and may require external confirmation.
func registerAgent(bus Bus) error {
	if err := bus.Export(&pairingAgent{}, BLUEZ_AGENT_PATH, BLUEZ_AGENT_INTERFACE); err != nil {
		return &AgentRegistrationError{Err: err}
	}
	if err := bus.Call(BLUEZ_MANAGER_PATH, BLUEZ_AGENT_MANAGER+".RegisterAgent",
		dbus.ObjectPath(BLUEZ_AGENT_PATH), AGENT_CAPABILITY); err != nil {
		return &AgentRegistrationError{Err: err}
	}
	if err := bus.Call(BLUEZ_MANAGER_PATH, BLUEZ_AGENT_MANAGER+".RequestDefaultAgent",
		dbus.ObjectPath(BLUEZ_AGENT_PATH)); err != nil {
		return &AgentRegistrationError{Err: err}
	}
	return nil
}
