package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

const (
	earthRadiusKm = 6371.0

	// Each 200 km of distance costs one point; 20000 km scores 0.
	kmPerPoint = 200.0

	// LocationFallbackScore is returned when either location is malformed.
	LocationFallbackScore = 50.0
)

var errNotAPair = errors.New("location must be a [latitude, longitude] pair")

// GeoPoint is a latitude/longitude pair in degrees.
type GeoPoint struct {
	Lat float64
	Lon float64
}

// Validate reports whether the point lies within the valid coordinate range.
func (p GeoPoint) Validate() error {
	if !(p.Lat >= -90 && p.Lat <= 90) {
		return fmt.Errorf("latitude %v out of range [-90, 90]", p.Lat)
	}
	if !(p.Lon >= -180 && p.Lon <= 180) {
		return fmt.Errorf("longitude %v out of range [-180, 180]", p.Lon)
	}
	return nil
}

// ParseGeoPoint converts a decoded [lat, lon] sequence into a validated GeoPoint.
func ParseGeoPoint(v any) (GeoPoint, error) {
	var pair []any
	switch val := v.(type) {
	case GeoPoint:
		return val, val.Validate()
	case *GeoPoint:
		if val == nil {
			return GeoPoint{}, errNotAPair
		}
		return *val, val.Validate()
	case []any:
		pair = val
	case []float64:
		pair = make([]any, len(val))
		for i, f := range val {
			pair[i] = f
		}
	case [2]float64:
		pair = []any{val[0], val[1]}
	default:
		return GeoPoint{}, errNotAPair
	}

	if len(pair) != 2 {
		return GeoPoint{}, fmt.Errorf("%w: got %d elements", errNotAPair, len(pair))
	}

	lat, err := coordinate(pair[0])
	if err != nil {
		return GeoPoint{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := coordinate(pair[1])
	if err != nil {
		return GeoPoint{}, fmt.Errorf("longitude: %w", err)
	}

	p := GeoPoint{Lat: lat, Lon: lon}
	return p, p.Validate()
}

func coordinate(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	default:
		return 0, fmt.Errorf("not a number: %v (%T)", v, v)
	}
}

// HaversineKm returns the great-circle distance between a and b in kilometers.
func HaversineKm(a, b GeoPoint) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Pow(math.Sin(dLat/2), 2) + math.Cos(lat1)*math.Cos(lat2)*math.Pow(math.Sin(dLon/2), 2)
	// Rounding can push h slightly above 1 for antipodal points.
	h = math.Min(1, h)

	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// Location scores geographic proximity: max(0, 100 - km/200). Inputs are raw
// decoded values; anything ParseGeoPoint rejects scores LocationFallbackScore.
func (e *Engine) Location(funder, fundee any) float64 {
	a, err := ParseGeoPoint(funder)
	if err == nil {
		var b GeoPoint
		if b, err = ParseGeoPoint(fundee); err == nil {
			return e.LocationBetween(a, b)
		}
	}

	e.record(Event{
		Scorer:   ScorerLocation,
		Factor:   "coordinates",
		Input:    fmt.Sprintf("%v -> %v", funder, fundee),
		Value:    LocationFallbackScore,
		Fallback: true,
		Err:      err,
	})
	return e.finish(ScorerLocation, LocationFallbackScore)
}

// LocationBetween scores two already parsed points.
func (e *Engine) LocationBetween(a, b GeoPoint) float64 {
	if err := errors.Join(a.Validate(), b.Validate()); err != nil {
		e.record(Event{Scorer: ScorerLocation, Factor: "coordinates", Value: LocationFallbackScore, Fallback: true, Err: err})
		return e.finish(ScorerLocation, LocationFallbackScore)
	}

	km := HaversineKm(a, b)
	e.record(Event{Scorer: ScorerLocation, Factor: "distance_km", Value: km})

	return e.finish(ScorerLocation, math.Max(0, MaxScore-km/kmPerPoint))
}
