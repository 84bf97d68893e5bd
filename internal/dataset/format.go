package dataset

import (
	"math"
	"strconv"
	"strings"

	"github.com/buckleypaul/testit/internal/config"
	"github.com/buckleypaul/testit/internal/golden"
)

const indent = "  "

// FormatValues renders every element of t as a C literal of type dt.
func FormatValues(t golden.Tensor, dt config.DataType) []string {
	out := make([]string, t.Len())
	for i := range out {
		if dt.IsFloat() {
			out[i] = formatFloat(t.Float(i), dt)
		} else {
			out[i] = strconv.FormatInt(t.Int(i), 10)
		}
	}
	return out
}

func formatFloat(v float64, dt config.DataType) string {
	bits := 64
	if dt == config.Float32 {
		bits = 32
	}
	s := strconv.FormatFloat(v, 'g', -1, bits)
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return s
	}
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

// FormatArray lays out a flat row-major initializer list: one line per
// innermost run, one blank line after each 2-D block, two more after each
// 3-D block, and d-2 more after each d-D block for d >= 4 when the array
// has more than four dimensions.
func FormatArray(values []string, shape []int) string {
	var b strings.Builder
	b.WriteString(indent)
	for i, v := range values {
		b.WriteString(" ")
		b.WriteString(v)
		if i == len(values)-1 {
			break
		}
		b.WriteString(",")

		n := i + 1
		if n%shape[len(shape)-1] != 0 {
			continue
		}
		b.WriteString("\n")
		b.WriteString(strings.Repeat("\n", blankLinesAfter(n, shape)))
		b.WriteString(indent)
	}
	b.WriteString("\n")
	return b.String()
}

// blankLinesAfter is the number of blank lines that follow the row ending
// at element count n.
func blankLinesAfter(n int, shape []int) int {
	nd := len(shape)
	blank := 0
	if nd > 2 && n%product(shape[nd-2:]) == 0 {
		blank++
	}
	if nd > 3 && n%product(shape[nd-3:]) == 0 {
		blank += 2
	}
	if nd > 4 {
		for d := 4; d <= nd; d++ {
			if n%product(shape[nd-d:]) == 0 {
				blank += d - 2
			}
		}
	}
	return blank
}

func product(dims []int) int {
	p := 1
	for _, d := range dims {
		p *= d
	}
	return p
}
