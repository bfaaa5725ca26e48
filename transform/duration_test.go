package transform

import "testing"

func TestSeconds(t *testing.T) {
	tests := []struct {
		name string
		iso  string
		want int64
	}{
		{"hours minutes seconds", "PT1H2M10S", 3732},
		{"seconds only", "PT45S", 45},
		{"hours only", "PT2H", 7200},
		{"minutes only", "PT4M", 240},
		{"minutes seconds", "PT10M30S", 630},
		{"empty", "", 0},
		{"garbage", "garbage", 0},
		{"bare prefix", "PT", 0},
		{"wrong order", "PT10S2M", 0},
		{"iso date component", "P1DT2H", 0},
		{"lowercase", "pt2h", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Seconds(tt.iso); got != tt.want {
				t.Errorf("Seconds(%q) = %d, want %d", tt.iso, got, tt.want)
			}
		})
	}
}
