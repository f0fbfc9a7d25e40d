package extio

import (
	"fmt"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/wkt"

	"github.com/dogwalking/mobility-core/internal/temporal"
	"github.com/dogwalking/mobility-core/internal/temporal/terr"
)

// WKT renders a geometric point's well-known text, delegated entirely to
// the geometry collaborator.
func WKT(pt *geom.Point) (string, error) {
	s, err := wkt.Marshal(pt)
	if err != nil {
		return "", terr.New(terr.InvalidArgValue, "WKT emission failed: %v", err)
	}
	return s, nil
}

// EWKT renders extended WKT, prepending SRID=<n>; the separator character
// itself encodes the interpretation in the textual form: one form for a
// linear interpretation, another for a non-linear (stepwise/discrete) one.
func EWKT(pt *geom.Point, srid int32, interp temporal.Interpretation) (string, error) {
	body, err := WKT(pt)
	if err != nil {
		return "", err
	}
	sep := ","
	if interp == temporal.Linear {
		sep = ";"
	}
	return fmt.Sprintf("SRID=%d%s%s", srid, sep, body), nil
}
