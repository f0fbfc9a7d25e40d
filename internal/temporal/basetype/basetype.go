// Package basetype implements the polymorphic compare/eq/add/sub/mul/div
// layer that every other temporal
// package dispatches through. The source tree dispatches on a runtime
// "basetype" integer tag; here that becomes a Go sum type (Tag + a Value
// struct carrying only the field for its own Tag) with per-variant
// comparators, the way a GPS fix struct keeps one field per
// concern rather than an interface{} bag.
package basetype

import (
	"math"

	"github.com/twpayne/go-geom"

	"github.com/dogwalking/mobility-core/internal/temporal/terr"
)

// Tag identifies which variant of Value is populated.
type Tag int

const (
	Int32 Tag = iota
	Int64
	Float64
	Bool
	Text
	// Geom carries a 2D or 3D geometric point.
	Geom
	// Pose carries a point plus a planar rotation in radians.
	Pose
	// NetPoint carries a network edge id and a fractional position in [0,1].
	NetPoint
	// Double2/Double3/Double4 are aggregation helper carriers for running
	// sums (e.g. sum and count for an average).
	Double2
	Double3
	Double4
)

func (t Tag) String() string {
	switch t {
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Float64:
		return "float64"
	case Bool:
		return "bool"
	case Text:
		return "text"
	case Geom:
		return "geom"
	case Pose:
		return "pose"
	case NetPoint:
		return "npoint"
	case Double2:
		return "double2"
	case Double3:
		return "double3"
	case Double4:
		return "double4"
	default:
		return "unknown"
	}
}

// PoseValue is a point plus a planar rotation, used for oriented moving
// objects (e.g. a robot's position and heading).
type PoseValue struct {
	Point    *geom.Point
	Rotation float64 // radians
}

// NetPointValue is a position on a road-network edge.
type NetPointValue struct {
	EdgeID   int64
	Position float64 // in [0, 1]
}

// Double2/Double3/Double4 are fixed-size float carriers for running
// aggregates (e.g. sum and count for avg). Addition and division are
// defined componentwise.
type Double2 [2]float64
type Double3 [3]float64
type Double4 [4]float64

func (d Double2) Add(o Double2) Double2 { return Double2{d[0] + o[0], d[1] + o[1]} }
func (d Double2) Div(s float64) Double2 { return Double2{d[0] / s, d[1] / s} }

func (d Double3) Add(o Double3) Double3 {
	return Double3{d[0] + o[0], d[1] + o[1], d[2] + o[2]}
}
func (d Double3) Div(s float64) Double3 { return Double3{d[0] / s, d[1] / s, d[2] / s} }

func (d Double4) Add(o Double4) Double4 {
	return Double4{d[0] + o[0], d[1] + o[1], d[2] + o[2], d[3] + o[3]}
}
func (d Double4) Div(s float64) Double4 {
	return Double4{d[0] / s, d[1] / s, d[2] / s, d[3] / s}
}

// Value is a tagged base value. Only the field matching Tag is meaningful.
type Value struct {
	Tag Tag

	I32 int32
	I64 int64
	F64 float64
	B   bool
	S   string
	Pt  *geom.Point
	Ps  PoseValue
	Np  NetPointValue
	D2  Double2
	D3  Double3
	D4  Double4
}

func NewInt32(v int32) Value    { return Value{Tag: Int32, I32: v} }
func NewInt64(v int64) Value    { return Value{Tag: Int64, I64: v} }
func NewFloat64(v float64) Value { return Value{Tag: Float64, F64: v} }
func NewBool(v bool) Value      { return Value{Tag: Bool, B: v} }
func NewText(v string) Value    { return Value{Tag: Text, S: v} }
func NewGeom(pt *geom.Point) Value { return Value{Tag: Geom, Pt: pt} }
func NewPose(pt *geom.Point, rotation float64) Value {
	return Value{Tag: Pose, Ps: PoseValue{Point: pt, Rotation: rotation}}
}
func NewNetPoint(edgeID int64, pos float64) Value {
	return Value{Tag: NetPoint, Np: NetPointValue{EdgeID: edgeID, Position: pos}}
}
func NewDouble2(v Double2) Value { return Value{Tag: Double2, D2: v} }
func NewDouble3(v Double3) Value { return Value{Tag: Double3, D3: v} }
func NewDouble4(v Double4) Value { return Value{Tag: Double4, D4: v} }

// eqEpsilon is the fixed tolerance used for mixed int/float and
// floating-point equality, using a small epsilon instead of exact equality.
//
// Turning-point computation in lift.go does not go through this path:
// lift.NumericTurningPoint reads the F64 field directly. It only runs on
// doubly-linear segments, and a linear sequence requires a continuous base
// type, so integer values never reach it.
const eqEpsilon = 1e-9

// Continuous reports whether the base type's value space admits linear
// interpolation.
func (t Tag) Continuous() bool {
	switch t {
	case Float64, Geom, Pose, NetPoint:
		return true
	default:
		return false
	}
}

// Compare returns -1, 0, or 1 for a < b, a == b, a > b. Mixed-type
// comparison is defined only for (Int32, Float64) and (Float64, Int32); any
// other cross-type pair is an INVALID_ARG_TYPE error.
func Compare(a, b Value) (int, error) {
	if a.Tag != b.Tag {
		return mixedCompare(a, b)
	}
	switch a.Tag {
	case Int32:
		return compareOrdered(a.I32, b.I32), nil
	case Int64:
		return compareOrdered(a.I64, b.I64), nil
	case Float64:
		return compareFloat(a.F64, b.F64), nil
	case Bool:
		return compareOrdered(boolToInt(a.B), boolToInt(b.B)), nil
	case Text:
		// Byte-wise memcmp under C collation.
		return compareOrdered(a.S, b.S), nil
	case Geom:
		return comparePoint(a.Pt, b.Pt), nil
	case Pose:
		if c := comparePoint(a.Ps.Point, b.Ps.Point); c != 0 {
			return c, nil
		}
		return compareFloat(a.Ps.Rotation, b.Ps.Rotation), nil
	case NetPoint:
		if a.Np.EdgeID != b.Np.EdgeID {
			return compareOrdered(a.Np.EdgeID, b.Np.EdgeID), nil
		}
		return compareFloat(a.Np.Position, b.Np.Position), nil
	default:
		return 0, terr.New(terr.InvalidArgType, "type %s is not orderable", a.Tag)
	}
}

func mixedCompare(a, b Value) (int, error) {
	if a.Tag == Int32 && b.Tag == Float64 {
		return compareFloat(float64(a.I32), b.F64), nil
	}
	if a.Tag == Float64 && b.Tag == Int32 {
		return compareFloat(a.F64, float64(b.I32)), nil
	}
	return 0, terr.New(terr.InvalidArgType, "cannot compare %s with %s", a.Tag, b.Tag)
}

// Equal reports base-value equality, applying the epsilon rule on the
// promoted float representation for numeric types.
func Equal(a, b Value) (bool, error) {
	c, err := Compare(a, b)
	if err != nil {
		return false, err
	}
	return c == 0, nil
}

func compareFloat(a, b float64) int {
	if math.Abs(a-b) <= eqEpsilon {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func comparePoint(a, b *geom.Point) int {
	ac, bc := a.Coords(), b.Coords()
	for i := 0; i < len(ac) && i < len(bc); i++ {
		if c := compareFloat(ac[i], bc[i]); c != 0 {
			return c
		}
	}
	return compareOrdered(len(ac), len(bc))
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type ordered interface {
	~int | ~int32 | ~int64 | ~float64 | ~string
}

func compareOrdered[T ordered](a, b T) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// Add, Sub, Mul, Div implement pointwise arithmetic for the numeric base
// types, used by lifting (internal/temporal/lift) to evaluate arithmetic
// operators on temporal numbers. Division by a zero base value is an error
// the caller (lift) is responsible for pre-checking via the
// ever-equals-zero predicate; Div still guards directly so
// the function is safe to call standalone.
func Add(a, b Value) (Value, error) { return arith(a, b, "add") }
func Sub(a, b Value) (Value, error) { return arith(a, b, "sub") }
func Mul(a, b Value) (Value, error) { return arith(a, b, "mul") }
func Div(a, b Value) (Value, error) { return arith(a, b, "div") }

func arith(a, b Value, op string) (Value, error) {
	af, aok := asFloat(a)
	bf, bok := asFloat(b)
	if !aok || !bok {
		return Value{}, terr.New(terr.InvalidArgType, "%s undefined for %s/%s", op, a.Tag, b.Tag)
	}
	var r float64
	switch op {
	case "add":
		r = af + bf
	case "sub":
		r = af - bf
	case "mul":
		r = af * bf
	case "div":
		if bf == 0 {
			return Value{}, terr.New(terr.InvalidArgValue, "division by zero")
		}
		r = af / bf
	}
	if a.Tag == Int32 && b.Tag == Int32 && op != "div" {
		return NewInt32(int32(r)), nil
	}
	if a.Tag == Int64 && b.Tag == Int64 && op != "div" {
		return NewInt64(int64(r)), nil
	}
	return NewFloat64(r), nil
}

func asFloat(v Value) (float64, bool) {
	switch v.Tag {
	case Int32:
		return float64(v.I32), true
	case Int64:
		return float64(v.I64), true
	case Float64:
		return v.F64, true
	default:
		return 0, false
	}
}

// IsZero reports whether a numeric base value equals zero, used by lift's
// ever-equals-zero division guard.
func IsZero(v Value) bool {
	f, ok := asFloat(v)
	return ok && f == 0
}

// Interpolate computes the linearly-interpolated value between a and b at
// fraction f in [0, 1], following the base type's interpolation law
// (coordinatewise for points, componentwise for poses delegated to the
// rotation field directly since slerp degenerates to linear interpolation
// in the planar case). Discrete/step-only types have no linear
// interpolation and return an INTERNAL_ERROR if asked.
func Interpolate(a, b Value, f float64) (Value, error) {
	if a.Tag != b.Tag {
		return Value{}, terr.New(terr.InvalidArgType, "cannot interpolate %s with %s", a.Tag, b.Tag)
	}
	if !a.Tag.Continuous() {
		return Value{}, terr.New(terr.InternalError, "type %s has no linear interpolation", a.Tag)
	}
	switch a.Tag {
	case Float64:
		return NewFloat64(lerp(a.F64, b.F64, f)), nil
	case Geom:
		return NewGeom(lerpPoint(a.Pt, b.Pt, f)), nil
	case Pose:
		return NewPose(lerpPoint(a.Ps.Point, b.Ps.Point, f), lerp(a.Ps.Rotation, b.Ps.Rotation, f)), nil
	case NetPoint:
		if a.Np.EdgeID != b.Np.EdgeID {
			return Value{}, terr.New(terr.InvalidArgValue, "cannot interpolate across different edges")
		}
		return NewNetPoint(a.Np.EdgeID, lerp(a.Np.Position, b.Np.Position, f)), nil
	default:
		return Value{}, terr.New(terr.InternalError, "unreachable")
	}
}

func lerp(a, b, f float64) float64 { return a + (b-a)*f }

func lerpPoint(a, b *geom.Point, f float64) *geom.Point {
	ac, bc := a.Coords(), b.Coords()
	out := make(geom.Coord, len(ac))
	for i := range ac {
		out[i] = lerp(ac[i], bc[i], f)
	}
	return geom.Must(geom.NewPoint(a.Layout()).SetCoords(out))
}
