package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DataType is a dataset element type, spelled as in C.
type DataType string

const (
	Uint8   DataType = "uint8_t"
	Uint16  DataType = "uint16_t"
	Uint32  DataType = "uint32_t"
	Uint64  DataType = "uint64_t"
	Int8    DataType = "int8_t"
	Int16   DataType = "int16_t"
	Int32   DataType = "int32_t"
	Int64   DataType = "int64_t"
	Float32 DataType = "float"
	Float64 DataType = "double"
)

// Supported reports whether t is one of the ten generated element types.
func (t DataType) Supported() bool {
	switch t {
	case Uint8, Uint16, Uint32, Uint64, Int8, Int16, Int32, Int64, Float32, Float64:
		return true
	}
	return false
}

// IsFloat reports whether t is float or double.
func (t DataType) IsFloat() bool {
	return t == Float32 || t == Float64
}

// Bounds returns the inclusive value bounds of an integer type. uint64 is
// capped at MaxInt64 since values are carried as int64.
func (t DataType) Bounds() (min, max int64) {
	switch t {
	case Uint8:
		return 0, math.MaxUint8
	case Uint16:
		return 0, math.MaxUint16
	case Uint32:
		return 0, math.MaxUint32
	case Uint64:
		return 0, math.MaxInt64
	case Int8:
		return math.MinInt8, math.MaxInt8
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Int32:
		return math.MinInt32, math.MaxInt32
	}
	return math.MinInt64, math.MaxInt64
}

// ParamValue is either a scalar literal or an inclusive integer range.
type ParamValue struct {
	Literal string
	Range   *[2]int64
}

// Scalar returns a constant parameter value.
func Scalar(literal string) ParamValue {
	return ParamValue{Literal: literal}
}

// Range returns a ranged parameter value.
func Range(min, max int64) ParamValue {
	return ParamValue{Range: &[2]int64{min, max}}
}

func (v ParamValue) IsRange() bool { return v.Range != nil }

// Int parses the scalar literal as an integer.
func (v ParamValue) Int() (int64, bool) {
	if v.IsRange() {
		return 0, false
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v.Literal), 0, 64)
	return n, err == nil
}

func (v ParamValue) String() string {
	if v.IsRange() {
		return fmt.Sprintf("[%d, %d]", v.Range[0], v.Range[1])
	}
	return v.Literal
}

func (v *ParamValue) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		var r []int64
		if err := n.Decode(&r); err != nil {
			return fmt.Errorf("line %d: parameter range must be two integers: %w", n.Line, err)
		}
		if len(r) != 2 {
			return fmt.Errorf("line %d: parameter range must have exactly two bounds, got %d", n.Line, len(r))
		}
		*v = Range(r[0], r[1])
	case yaml.ScalarNode:
		*v = Scalar(n.Value)
	default:
		return fmt.Errorf("line %d: parameter value must be a scalar or a [min, max] range", n.Line)
	}
	return nil
}

func (v ParamValue) MarshalYAML() (any, error) {
	if v.IsRange() {
		return []int64{v.Range[0], v.Range[1]}, nil
	}
	if n, ok := v.Int(); ok {
		return n, nil
	}
	return v.Literal, nil
}

// Dimension is a fixed size or the name of a parameter resolved at
// generation time.
type Dimension struct {
	Size  int
	Param string
}

func SizeDim(n int) Dimension        { return Dimension{Size: n} }
func ParamDim(name string) Dimension { return Dimension{Param: name} }

func (d *Dimension) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: dimension must be an integer or a parameter name", n.Line)
	}
	if n.ShortTag() == "!!int" {
		size, err := strconv.Atoi(n.Value)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		*d = SizeDim(size)
		return nil
	}
	*d = ParamDim(n.Value)
	return nil
}

func (d Dimension) MarshalYAML() (any, error) {
	if d.Param != "" {
		return d.Param, nil
	}
	return d.Size, nil
}

// DatasetList accepts either a single dataset mapping or a sequence.
type DatasetList []DatasetSpec

func (l *DatasetList) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.MappingNode {
		var one DatasetSpec
		if err := n.Decode(&one); err != nil {
			return err
		}
		*l = DatasetList{one}
		return nil
	}
	var many []DatasetSpec
	if err := n.Decode(&many); err != nil {
		return err
	}
	*l = many
	return nil
}

// PortRef names a serial device, either a path or a /dev/ttyUSB index.
type PortRef string

func (p *PortRef) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: usbPort must be a scalar", n.Line)
	}
	*p = PortRef(n.Value)
	return nil
}

// Path resolves the reference to a device path.
func (p PortRef) Path() string {
	s := strings.TrimSpace(string(p))
	if s == "" {
		return ""
	}
	if _, err := strconv.Atoi(s); err == nil {
		return "/dev/ttyUSB" + s
	}
	return s
}
