package vrm

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "ab12 cde", want: "AB12CDE"},
		{in: "  AB12CDE  ", want: "AB12CDE"},
		{in: "a b\t1 2\nc", want: "AB12C"},
		{in: "xy98zab", want: "XY98ZAB"},
		{in: "", want: ""},
		{in: "   ", want: ""},
		{in: " ab12 cde", want: "AB12CDE"},
	}

	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"", " ", "ab12 cde", "AB12CDE", "m  1", "\tq\r\n7", "é12 b"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
