package bluetooth

import "testing"

func TestClassifyDevice(t *testing.T) {
	cases := []struct {
		name  string
		icon  string
		class uint32
		label string
		want  string
	}{
		{"icon phone", "phone", 0, "", DeviceTypePhone},
		{"icon headset", "audio-headset", 0, "", DeviceTypeHeadphones},
		{"icon speaker", "audio-card", 0, "", DeviceTypeSpeaker},
		{"icon laptop", "computer-laptop", 0, "", DeviceTypeComputer},
		{"icon keyboard", "input-keyboard", 0, "", DeviceTypeInput},

		// Class of Device bitmasks: major class in bits 8..12, minor in 2..7.
		{"class smartphone", "", 0x5a020c, "", DeviceTypePhone},
		{"class computer", "", 0x000104, "", DeviceTypeComputer},
		{"class wearable headset", "", 0x000404 | 0x01<<2, "", DeviceTypeHeadphones},
		{"class loudspeaker", "", 0x000400 | 0x05<<2, "", DeviceTypeSpeaker},
		{"class peripheral", "", 0x000540, "", DeviceTypeInput},

		{"name buds", "", 0, "Galaxy Buds2", DeviceTypeHeadphones},
		{"name speaker", "", 0, "JBL Speaker", DeviceTypeSpeaker},
		{"name macbook", "", 0, "Dave's MacBook Pro", DeviceTypeComputer},
		{"name phone case-insensitive", "", 0, "MY PHONE", DeviceTypePhone},

		// Earlier classifiers outrank later ones.
		{"icon beats class", "phone", 0x000104, "", DeviceTypePhone},
		{"class beats name", "", 0x5a020c, "Galaxy Buds2", DeviceTypePhone},

		{"nothing known", "", 0, "XZ-900", DeviceTypeUnknown},
		{"unmapped icon", "printer", 0, "", DeviceTypeUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyDevice(tc.icon, tc.class, tc.label); got != tc.want {
				t.Errorf("classifyDevice(%q, %#x, %q) = %q, want %q", tc.icon, tc.class, tc.label, got, tc.want)
			}
		})
	}
}
