package geocode

import (
	"math"
	"testing"

	pkgerrors "github.com/courierloop/courierloop-backend/pkg/errors"
)

func TestEncodeRejectsOutOfRangeCoordinates(t *testing.T) {
	cases := []struct{ lat, lon float64 }{
		{91, 0},
		{-91, 0},
		{0, 181},
		{0, -181},
	}
	for _, tc := range cases {
		if _, err := Encode(tc.lat, tc.lon); !pkgerrors.Is(err, pkgerrors.CodeInvalidCoordinate) {
			t.Fatalf("Encode(%v, %v) expected invalid coordinate error, got %v", tc.lat, tc.lon, err)
		}
	}
}

func TestEncodeProducesGroupedCode(t *testing.T) {
	code, err := Encode(12.9716, 77.5946)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(code) != 10 || code[3] != '-' || code[7] != '-' {
		t.Fatalf("unexpected code shape %q", code)
	}
}

func TestDecodeRejectsMalformedCodes(t *testing.T) {
	for _, code := range []string{"", "ABC", "ABC-DEF", "ABCD-EF-GH", "AB!-CDE-FG"} {
		if _, _, err := Decode(code); !pkgerrors.Is(err, pkgerrors.CodeInvalidCodeFormat) {
			t.Fatalf("Decode(%q) expected format error, got %v", code, err)
		}
	}
}

func TestDecodeRejectsUnresolvableSymbols(t *testing.T) {
	// 'A' passes the shape check but is not part of the symbol grid.
	if _, _, err := Decode("AAA-AAA-AA"); !pkgerrors.Is(err, pkgerrors.CodeDecodeFailure) {
		t.Fatalf("expected decode failure, got %v", err)
	}
}

func TestDecodeIsCaseInsensitive(t *testing.T) {
	code, err := Encode(28.6139, 77.209)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	upLat, upLon, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode upper: %v", err)
	}
	loLat, loLon, err := Decode(lower(code))
	if err != nil {
		t.Fatalf("Decode lower: %v", err)
	}
	if upLat != loLat || upLon != loLon {
		t.Fatalf("case changed decode result: (%v,%v) vs (%v,%v)", upLat, upLon, loLat, loLon)
	}
}

func TestEncodeDecodeRoundTripWithinTolerance(t *testing.T) {
	for lat := -90.0; lat <= 90.0; lat += 7.3 {
		for lon := -180.0; lon <= 180.0; lon += 11.7 {
			code, err := Encode(lat, lon)
			if err != nil {
				t.Fatalf("Encode(%v, %v): %v", lat, lon, err)
			}
			gotLat, gotLon, err := Decode(code)
			if err != nil {
				t.Fatalf("Decode(%q): %v", code, err)
			}
			if math.Abs(gotLat-lat) > LatToleranceDeg*(1+1e-9) {
				t.Fatalf("lat drift %v for (%v,%v) via %q", math.Abs(gotLat-lat), lat, lon, code)
			}
			if math.Abs(gotLon-lon) > LonToleranceDeg*(1+1e-9) {
				t.Fatalf("lon drift %v for (%v,%v) via %q", math.Abs(gotLon-lon), lat, lon, code)
			}
		}
	}
}

func TestCanonicalizeUppercases(t *testing.T) {
	got, err := Canonicalize(" f2k-9m3-7c ")
	if err != nil {
		t.Fatalf("Canonicalize: %v", err)
	}
	if got != "F2K-9M3-7C" {
		t.Fatalf("unexpected canonical form %q", got)
	}
}

func lower(s string) string {
	out := []byte(s)
	for i, c := range out {
		if c >= 'A' && c <= 'Z' {
			out[i] = c + 32
		}
	}
	return string(out)
}
