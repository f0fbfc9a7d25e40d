package extio

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/twpayne/go-geom"

	"github.com/dogwalking/mobility-core/internal/temporal"
	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
	"github.com/dogwalking/mobility-core/internal/temporal/terr"
)

// mfjsonDatetimeLayout prints microsecond resolution with a T separator
// and the session time zone as a numeric offset.
const mfjsonDatetimeLayout = "2006-01-02T15:04:05.000000-07:00"

// sequenceShape is the per-sequence JSON shape shared by a bare continuous
// sequence and each element of a sequence set's "sequences" array.
type sequenceShape struct {
	Coordinates interface{} `json:"coordinates"`
	Datetimes   interface{} `json:"datetimes"`
	LowerInc    bool        `json:"lower_inc"`
	UpperInc    bool        `json:"upper_inc"`
}

type boundedBy struct {
	BBox   []float64 `json:"bbox"`
	Period *period   `json:"period,omitempty"`
}

type period struct {
	Begin string `json:"begin"`
	End   string `json:"end"`
}

// doc is the top-level MF-JSON document. Only the fields
// relevant to the active shape are populated; json:",omitempty" keeps the
// others out of the emitted object.
type doc struct {
	Type           string          `json:"type"`
	CRS            interface{}     `json:"crs,omitempty"`
	StBoundedBy    *boundedBy      `json:"stBoundedBy,omitempty"`
	Coordinates    interface{}     `json:"coordinates,omitempty"`
	Datetimes      interface{}     `json:"datetimes,omitempty"`
	LowerInc       *bool           `json:"lower_inc,omitempty"`
	UpperInc       *bool           `json:"upper_inc,omitempty"`
	Interpolations []string        `json:"interpolations"`
	Sequences      []sequenceShape `json:"sequences,omitempty"`
}

func roundTo(f float64, precision int) float64 {
	if precision <= 0 {
		precision = 15
	}
	s := strconv.FormatFloat(f, 'g', precision, 64)
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func coordsOf(v basetype.Value, precision int) ([]float64, error) {
	if v.Tag != basetype.Geom {
		return nil, terr.New(terr.InvalidArgType, "MF-JSON emission supports only geometric-point (MovingPoint) values, got %s", v.Tag)
	}
	raw := v.Pt.Coords()
	out := make([]float64, len(raw))
	for i, c := range raw {
		out[i] = roundTo(c, precision)
	}
	return out, nil
}

func formatTime(t time.Time) string { return t.Format(mfjsonDatetimeLayout) }

func interpolationName(interp temporal.Interpretation) string {
	switch interp {
	case temporal.Discrete:
		return "Discrete"
	case temporal.Step:
		return "Stepwise"
	case temporal.Linear:
		return "Linear"
	default:
		return "Discrete"
	}
}

// EmitMFJSON renders t as a MovingPoint MF-JSON document.
func EmitMFJSON(t temporal.Temporal, precision int) ([]byte, error) {
	d := doc{Type: "MovingPoint"}

	switch v := t.(type) {
	case *temporal.TInstant:
		c, err := coordsOf(v.Value(), precision)
		if err != nil {
			return nil, err
		}
		d.Coordinates = c
		d.Datetimes = formatTime(v.Time())
		d.Interpolations = []string{"Discrete"}

	case *temporal.TDiscreteSeq:
		insts := temporal.Instants(v)
		coords := make([][]float64, len(insts))
		times := make([]string, len(insts))
		for i, inst := range insts {
			c, err := coordsOf(inst.V, precision)
			if err != nil {
				return nil, err
			}
			coords[i] = c
			times[i] = formatTime(inst.T)
		}
		d.Coordinates = coords
		d.Datetimes = times
		d.Interpolations = []string{"Discrete"}

	case *temporal.TSequence:
		shape, err := emitSequenceShape(v, precision)
		if err != nil {
			return nil, err
		}
		d.Coordinates = shape.Coordinates
		d.Datetimes = shape.Datetimes
		d.LowerInc = &shape.LowerInc
		d.UpperInc = &shape.UpperInc
		d.Interpolations = []string{interpolationName(v.Interpretation())}

	case *temporal.TSequenceSet:
		shapes := make([]sequenceShape, v.NumSequences())
		for i := 0; i < v.NumSequences(); i++ {
			shape, err := emitSequenceShape(v.SequenceAt(i), precision)
			if err != nil {
				return nil, err
			}
			shapes[i] = shape
		}
		d.Sequences = shapes
		d.Interpolations = []string{interpolationName(v.Interpretation())}

	default:
		return nil, terr.New(terr.InternalError, "unknown temporal subtype for MF-JSON emission")
	}

	return json.Marshal(d)
}

func emitSequenceShape(seq *temporal.TSequence, precision int) (sequenceShape, error) {
	insts := temporal.Instants(seq)
	coords := make([][]float64, len(insts))
	times := make([]string, len(insts))
	for i, inst := range insts {
		c, err := coordsOf(inst.V, precision)
		if err != nil {
			return sequenceShape{}, err
		}
		coords[i] = c
		times[i] = formatTime(inst.T)
	}
	return sequenceShape{
		Coordinates: coords,
		Datetimes:   times,
		LowerInc:    seq.LowerInc(),
		UpperInc:    seq.UpperInc(),
	}, nil
}

// ParseMFJSON ingests a MovingPoint MF-JSON document back into a temporal
// value, dispatching on which fields are present.
func ParseMFJSON(data []byte) (temporal.Temporal, error) {
	var d doc
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, terr.New(terr.InvalidArgValue, "malformed MF-JSON: %v", err)
	}
	if len(d.Sequences) > 0 {
		seqs := make([]*temporal.TSequence, len(d.Sequences))
		interp := parseInterpolation(d.Interpolations)
		for i, s := range d.Sequences {
			seq, err := parseSequenceShape(s, interp)
			if err != nil {
				return nil, err
			}
			seqs[i] = seq
		}
		return temporal.NewSequenceSet(seqs)
	}
	if d.LowerInc != nil && d.UpperInc != nil {
		interp := parseInterpolation(d.Interpolations)
		return parseSequenceShape(sequenceShape{
			Coordinates: d.Coordinates,
			Datetimes:   d.Datetimes,
			LowerInc:    *d.LowerInc,
			UpperInc:    *d.UpperInc,
		}, interp)
	}
	// Discrete: either a single instant (scalar coordinates) or a discrete
	// sequence (array coordinates).
	switch coords := d.Coordinates.(type) {
	case []interface{}:
		if len(coords) > 0 {
			if _, isArray := coords[0].([]interface{}); isArray {
				return parseDiscreteSeq(d)
			}
		}
		return parseInstant(d)
	default:
		return parseInstant(d)
	}
}

func parseInterpolation(names []string) temporal.Interpretation {
	if len(names) == 0 {
		return temporal.Discrete
	}
	switch names[0] {
	case "Linear":
		return temporal.Linear
	case "Stepwise":
		return temporal.Step
	default:
		return temporal.Discrete
	}
}

func parseCoordValue(raw interface{}) (basetype.Value, error) {
	arr, ok := raw.([]interface{})
	if !ok {
		return basetype.Value{}, terr.New(terr.InvalidArgValue, "coordinates entry is not an array")
	}
	coord := make(geom.Coord, len(arr))
	for i, c := range arr {
		f, ok := c.(float64)
		if !ok {
			return basetype.Value{}, terr.New(terr.InvalidArgValue, "coordinate component is not numeric")
		}
		coord[i] = f
	}
	layout := geom.XY
	if len(coord) == 3 {
		layout = geom.XYZ
	}
	pt, err := geom.NewPoint(layout).SetCoords(coord)
	if err != nil {
		return basetype.Value{}, terr.New(terr.InvalidArgValue, "invalid point coordinates: %v", err)
	}
	return basetype.NewGeom(pt), nil
}

func parseDatetime(raw interface{}) (time.Time, error) {
	s, ok := raw.(string)
	if !ok {
		return time.Time{}, terr.New(terr.InvalidArgValue, "datetime entry is not a string")
	}
	t, err := time.Parse(mfjsonDatetimeLayout, s)
	if err != nil {
		return time.Time{}, terr.New(terr.InvalidArgValue, "malformed MF-JSON datetime %q: %v", s, err)
	}
	return t, nil
}

func parseInstant(d doc) (temporal.Temporal, error) {
	v, err := parseCoordValue(d.Coordinates)
	if err != nil {
		return nil, err
	}
	t, err := parseDatetime(d.Datetimes)
	if err != nil {
		return nil, err
	}
	return temporal.NewInstant(v, t), nil
}

func parseDiscreteSeq(d doc) (temporal.Temporal, error) {
	coords, ok := d.Coordinates.([]interface{})
	if !ok {
		return nil, terr.New(terr.InvalidArgValue, "discrete sequence coordinates must be an array")
	}
	times, ok := d.Datetimes.([]interface{})
	if !ok || len(times) != len(coords) {
		return nil, terr.New(terr.InvalidArgValue, "discrete sequence datetimes must match coordinates in length")
	}
	insts := make([]temporal.Instant, len(coords))
	for i := range coords {
		v, err := parseCoordValue(coords[i])
		if err != nil {
			return nil, err
		}
		t, err := parseDatetime(times[i])
		if err != nil {
			return nil, err
		}
		insts[i] = temporal.Instant{V: v, T: t}
	}
	return temporal.NewDiscreteSeq(insts)
}

func parseSequenceShape(s sequenceShape, interp temporal.Interpretation) (*temporal.TSequence, error) {
	coords, ok := s.Coordinates.([]interface{})
	if !ok {
		return nil, terr.New(terr.InvalidArgValue, "sequence coordinates must be an array")
	}
	times, ok := s.Datetimes.([]interface{})
	if !ok || len(times) != len(coords) {
		return nil, terr.New(terr.InvalidArgValue, "sequence datetimes must match coordinates in length")
	}
	insts := make([]temporal.Instant, len(coords))
	for i := range coords {
		v, err := parseCoordValue(coords[i])
		if err != nil {
			return nil, err
		}
		t, err := parseDatetime(times[i])
		if err != nil {
			return nil, err
		}
		insts[i] = temporal.Instant{V: v, T: t}
	}
	return temporal.NewSequence(insts, s.LowerInc, s.UpperInc, interp)
}
