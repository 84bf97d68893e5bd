package dataset

import (
	"math"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/buckleypaul/testit/internal/config"
	"github.com/buckleypaul/testit/internal/golden"
)

// Shape resolves the dimensions of d against the test's parameters. A
// dimension naming no parameter resolves to 1.
func Shape(d config.DatasetSpec, params []golden.Param) ([]int, error) {
	shape := make([]int, len(d.Dimensions))
	for i, dim := range d.Dimensions {
		if dim.Param == "" {
			shape[i] = dim.Size
			continue
		}
		p, ok := golden.Lookup(params, dim.Param)
		if !ok {
			shape[i] = 1
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(p.Text), 0, 64)
		if err != nil {
			return nil, errors.Errorf("dataset %s: dimension %s is not an integer (%q)", d.Name, dim.Param, p.Text)
		}
		shape[i] = int(n)
	}
	for _, n := range shape {
		if n < 0 {
			return nil, errors.Errorf("dataset %s: negative dimension in shape %v", d.Name, shape)
		}
	}
	return shape, nil
}

// Random fills a tensor of the given shape with values drawn uniformly
// from d.ValueRange: half-open for integer types, closed for float and
// double.
func Random(d config.DatasetSpec, shape []int, r *rand.Rand) (golden.Tensor, error) {
	if !d.DataType.Supported() {
		return golden.Tensor{}, errors.Errorf("dataset %s: unsupported dataType %q", d.Name, d.DataType)
	}
	n := product(shape)
	a, b := d.ValueRange[0], d.ValueRange[1]

	if d.DataType.IsFloat() {
		if b < a {
			return golden.Tensor{}, errors.Errorf("dataset %s: valueRange [%g, %g] is empty", d.Name, a, b)
		}
		if d.DataType == config.Float32 && (math.Abs(a) > math.MaxFloat32 || math.Abs(b) > math.MaxFloat32) {
			return golden.Tensor{}, errors.Errorf("dataset %s: valueRange [%g, %g] exceeds float", d.Name, a, b)
		}
		values := make([]float64, n)
		for i := range values {
			values[i] = drawFloat(r, a, b, d.DataType)
		}
		return golden.Floats(shape, values), nil
	}

	if math.Abs(a) > math.MaxInt64/2 || math.Abs(b) > math.MaxInt64/2 {
		return golden.Tensor{}, errors.Errorf("dataset %s: valueRange [%g, %g] is too wide", d.Name, a, b)
	}
	lo, hi := int64(a), int64(b)
	min, max := d.DataType.Bounds()
	if hi <= lo {
		return golden.Tensor{}, errors.Errorf("dataset %s: valueRange [%d, %d) is empty", d.Name, lo, hi)
	}
	if lo < min || hi-1 > max {
		return golden.Tensor{}, errors.Errorf("dataset %s: valueRange [%d, %d) does not fit %s", d.Name, lo, hi, d.DataType)
	}
	values := make([]int64, n)
	for i := range values {
		values[i] = lo + r.Int64N(hi-lo)
	}
	return golden.Ints(shape, values), nil
}

// drawFloat returns a value in [a, b] representable at the precision of dt.
func drawFloat(r *rand.Rand, a, b float64, dt config.DataType) float64 {
	v := a + r.Float64()*(b-a)
	if dt != config.Float32 {
		return math.Min(v, b)
	}
	f := float32(v)
	if float64(f) > b {
		f = math.Nextafter32(f, float32(math.Inf(-1)))
	}
	if float64(f) < a {
		f = math.Nextafter32(f, float32(math.Inf(1)))
	}
	return float64(f)
}
