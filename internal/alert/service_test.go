package alert

import "testing"

func TestParseTelegramID(t *testing.T) {
	cases := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"123456789", 123456789, false},
		{"-100200300", -100200300, false},
		{"0", 0, true},
		{"", 0, true},
		{"abc", 0, true},
		{"12.5", 0, true},
	}
	for _, tc := range cases {
		got, err := parseTelegramID(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("parseTelegramID(%q) expected error, got %d", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseTelegramID(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("parseTelegramID(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}
