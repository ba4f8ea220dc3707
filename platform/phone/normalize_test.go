package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		input, region, want string
	}{
		{"06 12345678", "NL", "+31612345678"},
		{"+31 6 12345678", "", "+31612345678"},
		{"  ", "NL", ""},
		{"not a number", "NL", "not a number"},
	}
	for _, tc := range cases {
		if got := NormalizeE164(tc.input, tc.region); got != tc.want {
			t.Errorf("NormalizeE164(%q, %q) = %q, want %q", tc.input, tc.region, got, tc.want)
		}
	}
}

func TestIsValid(t *testing.T) {
	if !IsValid("06 12345678", "NL") {
		t.Error("expected Dutch mobile number to be valid")
	}
	if IsValid("12", "NL") {
		t.Error("expected short number to be invalid")
	}
	if IsValid("", "NL") {
		t.Error("expected empty input to be invalid")
	}
}
