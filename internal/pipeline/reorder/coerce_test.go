package reorder

import "testing"

func TestCoerce(t *testing.T) {
	testCases := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"   ", 0},
		{"nan", 0},
		{"INF", 0},
		{"-inf", 0},
		{"None", 0},
		{"null", 0},
		{"12", 12},
		{"12,5", 12.5},
		{"12.5", 12.5},
		{"Rp 10000", 10000},
		{" -3 ", -3},
		{"#N/A", 0},
		{"1.234.5", 0},
		{"-", 0},
		{"abc", 0},
		{"1e5", 15},
	}

	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			if got := Coerce(tc.in); got != tc.want {
				t.Errorf("Expected Coerce(%q) = %v, got %v", tc.in, tc.want, got)
			}
		})
	}
}

func TestCoerce_Idempotent(t *testing.T) {
	inputs := []string{"", "NAN", "12,5", "1.234", "-0,75", "Rp 1.500", "x9y", "0.000001", "99999999999", "--1"}

	for _, in := range inputs {
		first := Coerce(in)
		second := Coerce(FormatCoerced(first))
		if first != second {
			t.Errorf("Coerce not idempotent for %q: %v then %v", in, first, second)
		}
	}
}
