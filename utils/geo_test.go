package utils

import (
	"math"
	"testing"
)

func TestValidateCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		lat     float64
		lon     float64
		wantErr bool
	}{
		{"valid", 17.385, 78.4867, false},
		{"equator meridian", 0, 0, false},
		{"lat upper bound", 90, 0, false},
		{"lon lower bound", 0, -180, false},
		{"lat too high", 90.01, 0, true},
		{"lat too low", -91, 0, true},
		{"lon too high", 0, 180.5, true},
		{"NaN lat", math.NaN(), 0, true},
		{"Inf lon", 0, math.Inf(-1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCoordinates(tt.lat, tt.lon)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCoordinates(%v, %v) error = %v, wantErr %v", tt.lat, tt.lon, err, tt.wantErr)
			}
		})
	}
}

func TestProximityBound(t *testing.T) {
	b := ProximityBound(17.4, 78.5, 2)

	if !InBound(b, 17.4, 78.5) {
		t.Error("center must be inside its own bound")
	}
	// Border points, computed with the same arithmetic the bound uses.
	if !InBound(b, 17.4+DegreesPerKm*2, 78.5) {
		t.Error("latitude border must be included")
	}
	if !InBound(b, 17.4, 78.5+DegreesPerKm*2) {
		t.Error("longitude border must be included")
	}
	if InBound(b, 17.461, 78.5) {
		t.Error("point past the border must be excluded")
	}
	if InBound(b, 17.4, 78.561) {
		t.Error("longitude past the border must be excluded")
	}
}
