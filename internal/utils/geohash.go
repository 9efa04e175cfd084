package utils

import (
	"errors"
	"math"

	"github.com/mmcloughlin/geohash"
	"github.com/piresc/trackwash/internal/pkg/models"
)

// DispatchPrecision gives cells of roughly 150m, fine enough to group
// bookings by estate for detailer dispatch
const DispatchPrecision uint = 7

// ErrInvalidCoordinates is returned for out-of-range lat/lng
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// GeoPoint represents a geographical point with latitude and longitude
type GeoPoint struct {
	Latitude  float64
	Longitude float64
}

// Valid reports whether the point lies within WGS84 bounds
func (p GeoPoint) Valid() bool {
	return p.Latitude >= -90 && p.Latitude <= 90 &&
		p.Longitude >= -180 && p.Longitude <= 180 &&
		!math.IsNaN(p.Latitude) && !math.IsNaN(p.Longitude)
}

// EncodeGeohash converts a point to a geohash string
func EncodeGeohash(point GeoPoint, precision uint) (string, error) {
	if !point.Valid() {
		return "", ErrInvalidCoordinates
	}
	return geohash.EncodeWithPrecision(point.Latitude, point.Longitude, precision), nil
}

// DecodeGeohash returns the centre of a geohash cell
func DecodeGeohash(hash string) GeoPoint {
	lat, lng := geohash.Decode(hash)
	return GeoPoint{Latitude: lat, Longitude: lng}
}

// DispatchCells returns the cell of hash plus its eight neighbours
func DispatchCells(hash string) []string {
	return append([]string{hash}, geohash.Neighbors(hash)...)
}

// AnnotateLocation fills loc.Geohash when both coordinates are present.
// A location without coordinates is left untouched.
func AnnotateLocation(loc *models.Location) error {
	if loc == nil || loc.Latitude == nil || loc.Longitude == nil {
		return nil
	}
	hash, err := EncodeGeohash(GeoPoint{Latitude: *loc.Latitude, Longitude: *loc.Longitude}, DispatchPrecision)
	if err != nil {
		return err
	}
	loc.Geohash = hash
	return nil
}

// CalculateDistance returns the haversine distance in kilometres
func CalculateDistance(point1, point2 GeoPoint) float64 {
	const earthRadius = 6371.0

	lat1 := point1.Latitude * math.Pi / 180.0
	lon1 := point1.Longitude * math.Pi / 180.0
	lat2 := point2.Latitude * math.Pi / 180.0
	lon2 := point2.Longitude * math.Pi / 180.0

	dLat := lat2 - lat1
	dLon := lon2 - lon1
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
