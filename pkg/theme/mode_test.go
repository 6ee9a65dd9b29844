package theme

import (
	"errors"
	"testing"
)

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		want Mode
		err  bool
	}{
		{in: "light", want: ModeLight},
		{in: " Dark ", want: ModeDark},
		{in: "sepia", err: true},
		{in: "", err: true},
	}
	for _, tc := range cases {
		got, err := ParseMode(tc.in)
		if tc.err {
			if !errors.Is(err, ErrUnknownMode) {
				t.Fatalf("ParseMode(%q): expected ErrUnknownMode, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseMode(%q) = %q, %v", tc.in, got, err)
		}
	}
}

func TestNextWraps(t *testing.T) {
	if ModeLight.Next() != ModeDark || ModeDark.Next() != ModeLight {
		t.Fatalf("unexpected toggle order")
	}
	if Mode("sepia").Next() != ModeLight {
		t.Fatalf("unknown modes should advance to the first member")
	}
}
