package store

import (
	"math"
	"testing"

	"github.com/xtxerr/telemetryd/internal/errors"
)

func TestParseGigabytes(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Metric
		wantErr bool
	}{
		{"gb with space", "120.5 GB", Gigabytes(120.5), false},
		{"gb no space", "60GB", Gigabytes(60), false},
		{"gb lower case", "2 gb", Gigabytes(2), false},
		{"bare number", "4.2", Gigabytes(4.2), false},
		{"megabytes", "500 MB", Gigabytes(0.5), false},
		{"gibibytes", "1 GiB", Gigabytes(1.073741824), false},
		{"terabytes", "2 TB", Gigabytes(2000), false},
		{"padded", "  8 GB ", Gigabytes(8), false},
		{"unknown", "unknown", Unknown, false},
		{"legacy unknown", "Desconhecido", Unknown, false},
		{"empty", "", Unknown, false},
		{"garbage", "lots", Unknown, true},
		{"unit only", "GB", Unknown, true},
		{"negative", "-1 GB", Unknown, true},
		{"nan", "NaN", Unknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseGigabytes(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseGigabytes(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrInvalidQuantity) {
				t.Errorf("error %v should wrap ErrInvalidQuantity", err)
			}
			if got.Known != tt.want.Known || math.Abs(got.Value-tt.want.Value) > 1e-9 {
				t.Errorf("ParseGigabytes(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseCount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Metric
		wantErr bool
	}{
		{"integer", "8", Count(8), false},
		{"zero", "0", Count(0), false},
		{"integral float", "4.0", Count(4), false},
		{"padded", " 16 ", Count(16), false},
		{"unknown", "unknown", Unknown, false},
		{"fraction", "2.5", Unknown, true},
		{"negative", "-4", Unknown, true},
		{"word", "eight", Unknown, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCount(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCount(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseCount(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	for _, v := range []float64{0, 0.1, 4.2, 120.5, 1.073741824, 1e-7, 123456789.123} {
		m := Gigabytes(v)
		got, err := ParseGigabytes(FormatGigabytes(m))
		if err != nil {
			t.Fatalf("round trip %v: %v", v, err)
		}
		if got != m {
			t.Errorf("round trip %v: got %+v", v, got)
		}
	}

	if FormatGigabytes(Unknown) != "unknown" {
		t.Errorf("FormatGigabytes(Unknown) = %q", FormatGigabytes(Unknown))
	}
	if FormatCount(Count(8)) != "8" {
		t.Errorf("FormatCount(8) = %q", FormatCount(Count(8)))
	}
}
