package bluetooth

const (
	BLUEZ_BUS_NAME               = "org.bluez"
	BLUEZ_MANAGER_PATH           = "/org/bluez"
	BLUEZ_ADAPTER_INTERFACE      = "org.bluez.Adapter1"
	BLUEZ_DEVICE_INTERFACE       = "org.bluez.Device1"
	BLUEZ_MEDIA_PLAYER_INTERFACE = "org.bluez.MediaPlayer1"
	BLUEZ_AGENT_INTERFACE        = "org.bluez.Agent1"
	BLUEZ_AGENT_MANAGER          = "org.bluez.AgentManager1"
	BLUEZ_AGENT_PATH             = "/com/nodenav/agent"

	DBUS_PROPERTIES_INTERFACE     = "org.freedesktop.DBus.Properties"
	DBUS_OBJECT_MANAGER_INTERFACE = "org.freedesktop.DBus.ObjectManager"

	SIGNAL_INTERFACES_ADDED   = DBUS_OBJECT_MANAGER_INTERFACE + ".InterfacesAdded"
	SIGNAL_INTERFACES_REMOVED = DBUS_OBJECT_MANAGER_INTERFACE + ".InterfacesRemoved"
	SIGNAL_PROPERTIES_CHANGED = DBUS_PROPERTIES_INTERFACE + ".PropertiesChanged"

	// Offered for both legacy PIN and numeric-confirmation pairing flows.
	AGENT_CAPABILITY = "KeyboardDisplay"

	// Fixed fallback credentials for pre-SSP devices.
	FALLBACK_PIN_CODE = "0000"
	FALLBACK_PASSKEY  = uint32(0)
)
