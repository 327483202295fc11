package geo

import "testing"

func TestHaversineZero(t *testing.T) {
	d := Haversine(37.5, 127.0, 37.5, 127.0)
	if d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestOffsetRoundtripsDistance(t *testing.T) {
	lat, lon := Offset(37.5665, 126.9780, 1000, 0)
	d := Haversine(37.5665, 126.9780, lat, lon)
	if d < 990 || d > 1010 {
		t.Fatalf("expected ~1000m, got %f", d)
	}
}
