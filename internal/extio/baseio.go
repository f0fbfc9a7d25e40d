// Package extio implements the external interfaces: base-type
// textual I/O, temporal MF-JSON emission/ingestion, and WKT/EWKT emission
// delegated to the geometry collaborator.
package extio

import (
	"strconv"
	"strings"

	"github.com/dogwalking/mobility-core/internal/temporal/basetype"
	"github.com/dogwalking/mobility-core/internal/temporal/terr"
)

// ParseBool accepts a case-insensitive
// t/true/yes/y/on/1 for true, f/false/no/n/off/0 for false, with
// whitespace trimmed from both ends.
func ParseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "t", "true", "yes", "y", "on", "1":
		return true, nil
	case "f", "false", "no", "n", "off", "0":
		return false, nil
	default:
		return false, terr.New(terr.InvalidArgValue, "not a valid boolean literal: %q", s)
	}
}

// FormatBool renders the canonical "t"/"f" textual form.
func FormatBool(b bool) string {
	if b {
		return "t"
	}
	return "f"
}

// ParseInt32 accepts an optional leading sign and rejects overflow.
func ParseInt32(s string) (int32, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
	if err != nil {
		return 0, terr.New(terr.InvalidArgValue, "not a valid int32 literal: %q", s)
	}
	return int32(v), nil
}

// ParseInt64 accepts an optional leading sign and rejects overflow.
func ParseInt64(s string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, terr.New(terr.InvalidArgValue, "not a valid int64 literal: %q", s)
	}
	return v, nil
}

// ParseFloat64 recognizes NaN, ±Inf, ±Infinity, ±inf, and decimal/
// scientific notation.
func ParseFloat64(s string) (float64, error) {
	trimmed := strings.TrimSpace(s)
	norm := trimmed
	switch strings.ToLower(trimmed) {
	case "inf", "+inf", "infinity", "+infinity":
		norm = "+Inf"
	case "-inf", "-infinity":
		norm = "-Inf"
	case "nan":
		norm = "NaN"
	}
	v, err := strconv.ParseFloat(norm, 64)
	if err != nil {
		return 0, terr.New(terr.InvalidArgValue, "not a valid float64 literal: %q", s)
	}
	return v, nil
}

// FormatFloat64 renders f at the given significant-digit precision,
// defaulting to the IEEE 15-digit maximum.
func FormatFloat64(f float64, precision int) string {
	if precision <= 0 {
		precision = 15
	}
	return strconv.FormatFloat(f, 'g', precision, 64)
}

// ParseValue parses a textual literal into a basetype.Value of the given
// tag, dispatching to the scalar parsers above.
func ParseValue(tag basetype.Tag, s string) (basetype.Value, error) {
	switch tag {
	case basetype.Bool:
		b, err := ParseBool(s)
		if err != nil {
			return basetype.Value{}, err
		}
		return basetype.NewBool(b), nil
	case basetype.Int32:
		v, err := ParseInt32(s)
		if err != nil {
			return basetype.Value{}, err
		}
		return basetype.NewInt32(v), nil
	case basetype.Int64:
		v, err := ParseInt64(s)
		if err != nil {
			return basetype.Value{}, err
		}
		return basetype.NewInt64(v), nil
	case basetype.Float64:
		v, err := ParseFloat64(s)
		if err != nil {
			return basetype.Value{}, err
		}
		return basetype.NewFloat64(v), nil
	case basetype.Text:
		return basetype.NewText(s), nil
	default:
		return basetype.Value{}, terr.New(terr.InvalidArgType, "no textual parser registered for base type %s", tag)
	}
}

// FormatValue renders v's textual form, dispatching on its tag.
func FormatValue(v basetype.Value) (string, error) {
	switch v.Tag {
	case basetype.Bool:
		return FormatBool(v.B), nil
	case basetype.Int32:
		return strconv.FormatInt(int64(v.I32), 10), nil
	case basetype.Int64:
		return strconv.FormatInt(v.I64, 10), nil
	case basetype.Float64:
		return FormatFloat64(v.F64, 15), nil
	case basetype.Text:
		return v.S, nil
	default:
		return "", terr.New(terr.InvalidArgType, "no textual formatter registered for base type %s", v.Tag)
	}
}
