package bluetooth

import "strings"

// Device type labels. Advisory only: classification is a best guess from
// unreliable signals and is never used for control-flow decisions.
const (
	DeviceTypePhone      = "phone"
	DeviceTypeSpeaker    = "speaker"
	DeviceTypeHeadphones = "headphones"
	DeviceTypeComputer   = "computer"
	DeviceTypeInput      = "input"
	DeviceTypeUnknown    = "unknown"
)

// classifyDevice runs an ordered chain of independent classifiers; the first
// non-unknown answer wins.
func classifyDevice(icon string, class uint32, name string) string {
	for _, classify := range []func() string{
		func() string { return classifyByIcon(icon) },
		func() string { return classifyByClass(class) },
		func() string { return classifyByName(name) },
	} {
		if t := classify(); t != DeviceTypeUnknown {
			return t
		}
	}
	return DeviceTypeUnknown
}

func classifyByIcon(icon string) string {
	switch icon {
	case "phone":
		return DeviceTypePhone
	case "audio-headset", "audio-headphones":
		return DeviceTypeHeadphones
	case "audio-card", "audio-speaker":
		return DeviceTypeSpeaker
	case "computer", "computer-laptop":
		return DeviceTypeComputer
	case "input-keyboard", "input-mouse", "input-gaming", "input-tablet":
		return DeviceTypeInput
	}
	return DeviceTypeUnknown
}

// classifyByClass inspects the major device class bits (8..12) of the
// Bluetooth Class of Device bitmask.
func classifyByClass(class uint32) string {
	if class == 0 {
		return DeviceTypeUnknown
	}
	switch (class >> 8) & 0x1f {
	case 0x01:
		return DeviceTypeComputer
	case 0x02:
		return DeviceTypePhone
	case 0x04:
		// Audio/video major class: minor bits distinguish wearable
		// headsets from loudspeakers.
		switch (class >> 2) & 0x3f {
		case 0x01, 0x02, 0x06:
			return DeviceTypeHeadphones
		case 0x05:
			return DeviceTypeSpeaker
		}
		return DeviceTypeSpeaker
	case 0x05:
		return DeviceTypeInput
	}
	return DeviceTypeUnknown
}

func classifyByName(name string) string {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "phone"):
		return DeviceTypePhone
	case strings.Contains(lower, "buds"), strings.Contains(lower, "headphone"), strings.Contains(lower, "headset"):
		return DeviceTypeHeadphones
	case strings.Contains(lower, "speaker"), strings.Contains(lower, "soundbar"):
		return DeviceTypeSpeaker
	case strings.Contains(lower, "keyboard"), strings.Contains(lower, "mouse"):
		return DeviceTypeInput
	case strings.Contains(lower, "macbook"), strings.Contains(lower, "laptop"), strings.Contains(lower, "desktop"):
		return DeviceTypeComputer
	}
	return DeviceTypeUnknown
}
