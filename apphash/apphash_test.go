package apphash

import (
	"bytes"
	"crypto/md5" // #nosec G501
	"encoding/hex"
	"testing"
	"time"
)

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(1994, 11, 15, 8, 12, 31, 0, time.UTC)
	if got := FormatTimestamp(ts); got != "Tue, 15 Nov 1994 08:12:31 GMT" {
		t.Errorf("FormatTimestamp = %q", got)
	}

	// Non-UTC input is normalised
	berlin := time.FixedZone("CET", 3600)
	if got := FormatTimestamp(ts.In(berlin)); got != "Tue, 15 Nov 1994 08:12:31 GMT" {
		t.Errorf("FormatTimestamp(CET) = %q", got)
	}
}

func TestNewAtAdvancesRequestID(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, id := range []uint32{0, 1, 41, 1000} {
		h := NewAt(id, "app-id", now)
		if h.RequestID != id+1 {
			t.Errorf("NewAt(%d).RequestID = %d, want %d", id, h.RequestID, id+1)
		}
	}
}

func TestNewAtDeterministic(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	a := NewAt(7, "app-id", now)
	b := NewAt(7, "app-id", now)
	if a != b {
		t.Errorf("signatures differ for identical input: %+v != %+v", a, b)
	}

	if a.Timestamp != "Tue, 02 Jan 2024 03:04:05 GMT" {
		t.Errorf("Timestamp = %q", a.Timestamp)
	}
	if a.Hash != Compute("app-id", a.Timestamp) {
		t.Errorf("Hash does not match Compute for the declared timestamp")
	}
	if a.String() != a.Hash {
		t.Errorf("String() = %q, want hash", a.String())
	}
}

func TestComputeSensitivity(t *testing.T) {
	t1 := "Tue, 02 Jan 2024 03:04:05 GMT"
	t2 := "Tue, 02 Jan 2024 03:04:06 GMT"

	if Compute("a1", t1) == Compute("a1", t2) {
		t.Error("hash did not change with timestamp")
	}
	if Compute("a1", t1) == Compute("a2", t1) {
		t.Error("hash did not change with credential")
	}
}

func TestComputeKnownValue(t *testing.T) {
	// md5("abc")
	if got := Compute("ab", "c"); got != "900150983cd24fb0d6963f7d28e17f72" {
		t.Errorf("Compute = %s", got)
	}
}

func TestComputeIsLowercaseHex(t *testing.T) {
	h := Compute("APP", "Tue, 02 Jan 2024 03:04:05 GMT")
	if len(h) != 32 {
		t.Fatalf("hash length = %d, want 32", len(h))
	}
	for _, c := range h {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			t.Fatalf("hash contains non-lowercase-hex character %q", c)
		}
	}
}

func TestEncodeWindows1252(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []byte
	}{
		{name: "ascii", in: "abc", want: []byte("abc")},
		{name: "umlaut", in: "ä", want: []byte{0xE4}},
		{name: "sharp s", in: "ß", want: []byte{0xDF}},
		{name: "euro", in: "€", want: []byte{0x80}},
		{name: "unmappable", in: "日", want: []byte("&#26085;")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Encode(tt.in); !bytes.Equal(got, tt.want) {
				t.Errorf("Encode(%q) = %x, want %x", tt.in, got, tt.want)
			}
		})
	}
}

func TestComputeUsesSingleByteEncoding(t *testing.T) {
	sum := md5.Sum([]byte{'x', 0xE4}) // #nosec G401
	want := hex.EncodeToString(sum[:])

	if got := Compute("x", "ä"); got != want {
		t.Errorf("Compute(x, ä) = %s, want %s", got, want)
	}

	utf8Sum := md5.Sum([]byte("xä")) // #nosec G401
	if Compute("x", "ä") == hex.EncodeToString(utf8Sum[:]) {
		t.Error("hash was computed over UTF-8 bytes")
	}
}
