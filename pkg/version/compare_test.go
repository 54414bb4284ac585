package version

import "testing"

func TestCompare(t *testing.T) {
	cases := []struct {
		a, b string
		want int
	}{
		{"2.0.0", "1.5.0", 1},
		{"1.5.0", "2.0.0", -1},
		{"1.2", "1.2.0", 0},
		{"1.10.0", "1.9.9", 1},
		{"", "0.0.0", 0},
		{"1.x.3", "1.0.3", 0},
		{"1.2.3-rc1", "1.2.3", 0},
		{"1.2.3.9", "1.2.3", 0},
	}
	for _, tc := range cases {
		got := Compare(tc.a, tc.b)
		if sign(got) != tc.want {
			t.Fatalf("Compare(%q, %q) = %d, expected sign %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestParseDefaultsMissingComponents(t *testing.T) {
	if got := Parse("4"); got != [3]int{4, 0, 0} {
		t.Fatalf("unexpected parse result %v", got)
	}
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
