package mathx

import "testing"

func TestBetween(t *testing.T) {
	cases := []struct {
		v, lo, hi int
		want      bool
	}{
		{0, 0, 4, true},
		{4, 0, 4, true},
		{5, 0, 4, false},
		{-1, 0, 4, false},
		{2, 4, 0, true}, // swapped bounds
	}
	for _, c := range cases {
		if got := Between(c.v, c.lo, c.hi); got != c.want {
			t.Fatalf("Between(%d,%d,%d)=%v want %v", c.v, c.lo, c.hi, got, c.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(200, 0, 128); got != 128 {
		t.Fatalf("got %d", got)
	}
	if got := Clamp(-3, 10, 0); got != 0 {
		t.Fatalf("swapped bounds: got %d", got)
	}
}
