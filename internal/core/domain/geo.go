package domain

// GeoPoint is a geographic coordinate in WGS 84 decimal degrees.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
