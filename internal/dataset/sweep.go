package dataset

import (
	"math/rand/v2"

	"github.com/buckleypaul/testit/internal/config"
	"github.com/buckleypaul/testit/internal/golden"
)

// Axis is one ranged parameter of a sweep.
type Axis struct {
	Min, Max, Step int64
}

// Size is the number of values the axis takes.
func (a Axis) Size() int64 {
	if a.Step <= 0 || a.Max < a.Min {
		return 1
	}
	return (a.Max-a.Min)/a.Step + 1
}

// Axes returns the sweep axes of params in declaration order.
func Axes(params []config.ParameterSpec) []Axis {
	var axes []Axis
	for _, p := range params {
		if p.Value.IsRange() {
			axes = append(axes, Axis{Min: p.Value.Range[0], Max: p.Value.Range[1], Step: p.Step})
		}
	}
	return axes
}

// SweepCount is the number of parameter combinations of a test: the
// product of its axis sizes.
func SweepCount(params []config.ParameterSpec) int64 {
	n := int64(1)
	for _, a := range Axes(params) {
		n *= a.Size()
	}
	return n
}

// SweepValues decodes index into one value per axis. The first axis
// varies fastest.
func SweepValues(index int64, axes []Axis) []int64 {
	values := make([]int64, len(axes))
	prior := int64(1)
	for k, a := range axes {
		size := a.Size()
		values[k] = a.Min + ((index/prior)%size)*a.Step
		prior *= size
	}
	return values
}

// SweepIndex is the inverse of SweepValues.
func SweepIndex(values []int64, axes []Axis) int64 {
	var index int64
	prior := int64(1)
	for k, a := range axes {
		index += ((values[k] - a.Min) / a.Step) * prior
		prior *= a.Size()
	}
	return index
}

// ResolveSweep fixes every ranged parameter to its value at sweep index.
func ResolveSweep(params []config.ParameterSpec, index int64) []golden.Param {
	values := SweepValues(index, Axes(params))
	out := make([]golden.Param, 0, len(params))
	k := 0
	for _, p := range params {
		if p.Value.IsRange() {
			out = append(out, golden.IntParam(p.Name, values[k]))
			k++
			continue
		}
		out = append(out, scalarParam(p))
	}
	return out
}

// ResolveRandom draws every ranged parameter uniformly from its inclusive
// range.
func ResolveRandom(params []config.ParameterSpec, r *rand.Rand) []golden.Param {
	out := make([]golden.Param, 0, len(params))
	for _, p := range params {
		if p.Value.IsRange() {
			lo, hi := p.Value.Range[0], p.Value.Range[1]
			out = append(out, golden.IntParam(p.Name, lo+r.Int64N(hi-lo+1)))
			continue
		}
		out = append(out, scalarParam(p))
	}
	return out
}

func scalarParam(p config.ParameterSpec) golden.Param {
	gp := golden.Param{Name: p.Name, Text: p.Value.Literal}
	if n, ok := p.Value.Int(); ok {
		gp.Value = n
	}
	return gp
}
