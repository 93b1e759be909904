package utils

// Bluetooth

type BluetoothDeviceInfo struct {
	Address   string `json:"address"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Paired    bool   `json:"paired"`
	Connected bool   `json:"connected"`
	Trusted   bool   `json:"trusted"`
	LastSeen  int64  `json:"lastSeen"`
}

type AdapterInfo struct {
	Initialized  bool   `json:"initialized"`
	Address      string `json:"address"`
	Alias        string `json:"alias"`
	Powered      bool   `json:"powered"`
	Discoverable bool   `json:"discoverable"`
	Pairable     bool   `json:"pairable"`
	Discovering  bool   `json:"discovering"`
}

// Media

type TrackInfo struct {
	Title           string `json:"title"`
	Artist          string `json:"artist"`
	Album           string `json:"album"`
	DurationSeconds int    `json:"durationSeconds"`
	PositionSeconds int    `json:"positionSeconds"`
}

type MediaState struct {
	Connected bool      `json:"connected"`
	Device    string    `json:"device"`
	IsPlaying bool      `json:"isPlaying"`
	Track     TrackInfo `json:"track"`
}

// WebSocket

type WebSocketEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type DeviceListChangedPayload struct {
	Devices []BluetoothDeviceInfo `json:"devices"`
}

type AdapterChangedPayload struct {
	Adapter AdapterInfo `json:"adapter"`
}

type MediaStatePayload struct {
	State MediaState `json:"state"`
}

type NetworkStatusPayload struct {
	Status string `json:"status"`
}

// Lights

type LightUnitPayload struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Pixels int    `json:"pixels"`
}
