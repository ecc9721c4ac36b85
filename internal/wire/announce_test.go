package wire

import (
	"testing"

	"github.com/xtxerr/telemetryd/internal/errors"
)

func TestAnnouncementEncode(t *testing.T) {
	a := Announcement{Host: "0.0.0.0", Port: 5551}
	if got := string(a.Encode()); got != "('0.0.0.0', 5551)" {
		t.Errorf("Encode = %q", got)
	}
	if got := a.Addr(); got != "0.0.0.0:5551" {
		t.Errorf("Addr = %q", got)
	}
	v6 := Announcement{Host: "fe80::1", Port: 5551}
	if got := v6.Addr(); got != "[fe80::1]:5551" {
		t.Errorf("Addr = %q", got)
	}
}

func TestDecodeAnnouncement(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Announcement
		wantErr bool
	}{
		{"single quotes", "('192.168.1.5', 5551)", Announcement{"192.168.1.5", 5551}, false},
		{"double quotes", `("10.0.0.1", 6000)`, Announcement{"10.0.0.1", 6000}, false},
		{"padded", "  ( '10.0.0.1' ,  6000 ) \n", Announcement{"10.0.0.1", 6000}, false},
		{"ipv6", "('fe80::1', 5551)", Announcement{"fe80::1", 5551}, false},
		{"no parens", "'10.0.0.1', 5551", Announcement{}, true},
		{"no port", "('10.0.0.1')", Announcement{}, true},
		{"unquoted host", "(10.0.0.1, 5551)", Announcement{}, true},
		{"empty host", "('', 5551)", Announcement{}, true},
		{"bad port", "('10.0.0.1', http)", Announcement{}, true},
		{"port range", "('10.0.0.1', 70000)", Announcement{}, true},
		{"mismatched quotes", `('10.0.0.1", 5551)`, Announcement{}, true},
		{"host name", "('collector.lan', 5551)", Announcement{"collector.lan", 5551}, false},
		{"junk host", "('not a host', 5551)", Announcement{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAnnouncement([]byte(tt.input))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeAnnouncement(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrInvalidAnnounce) {
				t.Errorf("error %v should wrap ErrInvalidAnnounce", err)
			}
			if got != tt.want {
				t.Errorf("DecodeAnnouncement(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}

	round := Announcement{Host: "10.1.2.3", Port: 5551}
	got, err := DecodeAnnouncement(round.Encode())
	if err != nil || got != round {
		t.Errorf("round trip = %+v, %v", got, err)
	}
}
