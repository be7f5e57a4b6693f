package model

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// SRID4326 is WGS84.
const SRID4326 = 4326

// ValidCoordinates reports whether lat/lng are within WGS84 bounds.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// LocationEWKB encodes a lat/lng pair as a little-endian EWKB point with
// SRID 4326. It returns nil when either coordinate is missing.
func LocationEWKB(lat, lng *float64) ([]byte, error) {
	if lat == nil || lng == nil {
		return nil, nil
	}
	if !ValidCoordinates(*lat, *lng) {
		return nil, eris.Errorf("model: coordinates out of range (%f, %f)", *lat, *lng)
	}

	pt := geom.NewPointFlat(geom.XY, []float64{*lng, *lat}).SetSRID(SRID4326)
	b, err := ewkb.Marshal(pt, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "model: marshal ewkb point")
	}
	return b, nil
}

// DecodeLocation parses an EWKB point back to lat/lng.
func DecodeLocation(b []byte) (lat, lng *float64, err error) {
	if len(b) == 0 {
		return nil, nil, nil
	}
	g, err := ewkb.Unmarshal(b)
	if err != nil {
		return nil, nil, eris.Wrap(err, "model: unmarshal ewkb")
	}
	pt, ok := g.(*geom.Point)
	if !ok {
		return nil, nil, eris.Errorf("model: expected point geometry, got %T", g)
	}
	x, y := pt.X(), pt.Y()
	return &y, &x, nil
}
