package money

import "testing"

func TestCentsString(t *testing.T) {
	cases := map[Cents]string{
		0:      "$0.00",
		2500:   "$25.00",
		599:    "$5.99",
		-1050:  "-$10.50",
		16099:  "$160.99",
		100005: "$1000.05",
	}
	for in, want := range cases {
		if got := in.String(); got != want {
			t.Fatalf("Cents(%d).String() = %q, want %q", int64(in), got, want)
		}
	}
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want Cents
	}{
		{"25", 2500},
		{"$25.50", 2550},
		{"25.5", 2550},
		{"0.99", 99},
		{" 100 ", 10000},
		{"-3.25", -325},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("Parse(%q) returned error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("Parse(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
	for _, bad := range []string{"", "abc", "1.234", "1.", "$"} {
		if _, err := Parse(bad); err == nil {
			t.Fatalf("Parse(%q) expected error", bad)
		}
	}
}
