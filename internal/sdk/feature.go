package sdk

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrValueType is returned when a FeatureValue cannot be converted to the
// requested kind.
var ErrValueType = errors.New("sdk: feature value type mismatch")

// FeatureKind enumerates the value types a camera feature can carry.
type FeatureKind int

const (
	KindInt FeatureKind = iota
	KindFloat
	KindBool
	KindString
	KindEnum
)

func (k FeatureKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindEnum:
		return "enum"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// FeatureValue is a tagged variant holding one feature value. The zero value
// is an int 0.
type FeatureValue struct {
	kind FeatureKind
	i    int64
	f    float64
	b    bool
	s    string
}

func IntValue(v int64) FeatureValue      { return FeatureValue{kind: KindInt, i: v} }
func FloatValue(v float64) FeatureValue  { return FeatureValue{kind: KindFloat, f: v} }
func BoolValue(v bool) FeatureValue      { return FeatureValue{kind: KindBool, b: v} }
func StringValue(v string) FeatureValue  { return FeatureValue{kind: KindString, s: v} }
func EnumValue(entry string) FeatureValue { return FeatureValue{kind: KindEnum, s: entry} }

// Kind returns the tag of the stored value.
func (v FeatureValue) Kind() FeatureKind { return v.kind }

// Int returns the value as int64. Floats convert when they are integral.
func (v FeatureValue) Int() (int64, error) {
	switch v.kind {
	case KindInt:
		return v.i, nil
	case KindFloat:
		if v.f == float64(int64(v.f)) {
			return int64(v.f), nil
		}
	}
	return 0, fmt.Errorf("%w: %s is not an int", ErrValueType, v.kind)
}

// Float returns the value as float64. Ints convert losslessly.
func (v FeatureValue) Float() (float64, error) {
	switch v.kind {
	case KindInt:
		return float64(v.i), nil
	case KindFloat:
		return v.f, nil
	}
	return 0, fmt.Errorf("%w: %s is not a float", ErrValueType, v.kind)
}

// Bool returns the value as bool.
func (v FeatureValue) Bool() (bool, error) {
	if v.kind == KindBool {
		return v.b, nil
	}
	return false, fmt.Errorf("%w: %s is not a bool", ErrValueType, v.kind)
}

// Str returns string and enum values.
func (v FeatureValue) Str() (string, error) {
	if v.kind == KindString || v.kind == KindEnum {
		return v.s, nil
	}
	return "", fmt.Errorf("%w: %s is not a string", ErrValueType, v.kind)
}

// Coerce converts the value to the given kind, or fails with ErrValueType.
func (v FeatureValue) Coerce(kind FeatureKind) (FeatureValue, error) {
	if v.kind == kind {
		return v, nil
	}
	switch kind {
	case KindInt:
		i, err := v.Int()
		if err != nil {
			return FeatureValue{}, err
		}
		return IntValue(i), nil
	case KindFloat:
		f, err := v.Float()
		if err != nil {
			return FeatureValue{}, err
		}
		return FloatValue(f), nil
	case KindBool:
		b, err := v.Bool()
		if err != nil {
			return FeatureValue{}, err
		}
		return BoolValue(b), nil
	case KindString, KindEnum:
		s, err := v.Str()
		if err != nil {
			return FeatureValue{}, err
		}
		return FeatureValue{kind: kind, s: s}, nil
	}
	return FeatureValue{}, fmt.Errorf("%w: cannot coerce %s to %s", ErrValueType, v.kind, kind)
}

func (v FeatureValue) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return v.s
	}
}

// FeatureInfo describes one named feature: its kind, writability, and the
// legal value range. Min/Max apply to numeric kinds; Enum lists the legal
// entries for KindEnum.
type FeatureInfo struct {
	Name     string
	Kind     FeatureKind
	Writable bool
	Min      float64
	Max      float64
	Enum     []string
}

// InRange reports whether v (already coerced to info.Kind) lies inside the
// feature's bounds. Non-numeric, non-enum kinds are always in range.
func (info FeatureInfo) InRange(v FeatureValue) bool {
	switch info.Kind {
	case KindInt, KindFloat:
		f, err := v.Float()
		if err != nil {
			return false
		}
		if info.Min == 0 && info.Max == 0 {
			return true
		}
		return f >= info.Min && f <= info.Max
	case KindEnum:
		s, err := v.Str()
		if err != nil {
			return false
		}
		for _, entry := range info.Enum {
			if entry == s {
				return true
			}
		}
		return false
	}
	return true
}
