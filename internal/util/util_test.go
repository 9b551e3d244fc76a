package util

import "testing"

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Front Door", "front-door"},
		{"Smart Lock", "smart-lock"},
		{"Temperature Sensor (legacy)", "temperature-sensor-legacy"},
		{"Sovrum övervåning", "sovrum-overvaning"},
		{"  Spaced  Out  ", "spaced-out"},
		{"already-slugged", "already-slugged"},
	}
	for _, c := range cases {
		if got := Slugify(c.in); got != c.want {
			t.Errorf("Slugify(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalize(t *testing.T) {
	if got := Normalize("\x00Front Door\x00 "); got != "Front Door" {
		t.Errorf("Normalize = %q", got)
	}
}

func TestContains(t *testing.T) {
	caps := []string{"UseLegacyHomeScreen", "QuickArm"}
	if !Contains(caps, "QuickArm") {
		t.Error("expected QuickArm to be found")
	}
	if Contains(caps, "quickarm") {
		t.Error("match should be case sensitive")
	}
	if Contains(nil, "anything") {
		t.Error("nil slice contains nothing")
	}
}
