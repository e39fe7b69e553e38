package geospatial

import (
	"math"
	"testing"
)

func TestHaversine_CoincidentPoints(t *testing.T) {
	if d := Haversine(48.8566, 2.3522, 48.8566, 2.3522); d != 0 {
		t.Errorf("expected 0 for coincident points, got %v", d)
	}
}

func TestHaversine_OneDegreeLongitudeAtEquator(t *testing.T) {
	// One degree of longitude at the equator with R=6371000 is ~111195 m.
	d := Haversine(0, 0, 0, 1)
	if math.Abs(d-111195) > 1 {
		t.Errorf("expected ~111195 m, got %v", d)
	}
}

func TestHaversine_Symmetry(t *testing.T) {
	points := [][4]float64{
		{43.263, -2.935, 48.8566, 2.3522},
		{0, 0, -33.8688, 151.2093},
		{89.9, 10, -89.9, -170},
	}
	for _, p := range points {
		ab := Haversine(p[0], p[1], p[2], p[3])
		ba := Haversine(p[2], p[3], p[0], p[1])
		if math.Abs(ab-ba) > 1e-6 {
			t.Errorf("distance not symmetric: %v vs %v", ab, ba)
		}
	}
}

func TestHaversine_KnownCityPair(t *testing.T) {
	// Bilbao to Paris, roughly 724 km.
	d := Haversine(43.263, -2.935, 48.8566, 2.3522)
	if d < 700000 || d > 750000 {
		t.Errorf("Bilbao-Paris distance out of range: %v", d)
	}
}

func TestBoundingBox_ContainsCenter(t *testing.T) {
	minLat, minLon, maxLat, maxLon := BoundingBox(43.263, -2.935, 500)
	if minLat >= 43.263 || maxLat <= 43.263 || minLon >= -2.935 || maxLon <= -2.935 {
		t.Errorf("box does not contain center: %v %v %v %v", minLat, minLon, maxLat, maxLon)
	}
}
