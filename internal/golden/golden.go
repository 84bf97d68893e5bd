// Package golden resolves the reference functions that compute the
// expected outputs of a test from its generated inputs.
package golden

import (
	"fmt"
	"strconv"
	"sync"
)

// Tensor is a dense row-major array. Exactly one of Ints and Floats holds
// the elements.
type Tensor struct {
	Shape  []int
	Ints   []int64
	Floats []float64
}

// Ints returns an integer tensor.
func Ints(shape []int, values []int64) Tensor {
	return Tensor{Shape: shape, Ints: values}
}

// Floats returns a floating-point tensor.
func Floats(shape []int, values []float64) Tensor {
	return Tensor{Shape: shape, Floats: values}
}

// IsFloat reports whether the elements are floating point.
func (t Tensor) IsFloat() bool { return t.Floats != nil }

// Len returns the number of elements.
func (t Tensor) Len() int {
	if t.IsFloat() {
		return len(t.Floats)
	}
	return len(t.Ints)
}

// Size returns the element count implied by Shape.
func (t Tensor) Size() int {
	n := 1
	for _, d := range t.Shape {
		n *= d
	}
	return n
}

// Float returns element i as a float64.
func (t Tensor) Float(i int) float64 {
	if t.IsFloat() {
		return t.Floats[i]
	}
	return float64(t.Ints[i])
}

// Int returns element i as an int64, truncating floats.
func (t Tensor) Int(i int) int64 {
	if t.IsFloat() {
		return int64(t.Floats[i])
	}
	return t.Ints[i]
}

// Param is a resolved test parameter.
type Param struct {
	Name string
	// Text is the value as written in the generated header.
	Text string
	// Value is the integer value; zero when Text is not an integer.
	Value int64
}

// Lookup finds a parameter by name.
func Lookup(params []Param, name string) (Param, bool) {
	for _, p := range params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// IntParam returns a named integer parameter.
func IntParam(name string, v int64) Param {
	return Param{Name: name, Text: strconv.FormatInt(v, 10), Value: v}
}

// Func computes output tensors from the inputs and parameters of a test.
type Func func(inputs []Tensor, params []Param) ([]Tensor, error)

// Loader resolves golden functions by name.
type Loader interface {
	Load(name string) (Func, error)
}

// NotFoundError is returned when no function has the requested name.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("golden function %q not found", e.Name)
}

// Registry is an in-process Loader.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]Func
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]Func)}
}

// Register adds or replaces fn under name.
func (r *Registry) Register(name string, fn Func) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

func (r *Registry) Load(name string) (Func, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	if !ok {
		return nil, &NotFoundError{Name: name}
	}
	return fn, nil
}

// Cached wraps a Loader so each name is resolved once.
func Cached(l Loader) Loader {
	return &cached{next: l, funcs: make(map[string]Func)}
}

type cached struct {
	next  Loader
	mu    sync.Mutex
	funcs map[string]Func
}

func (c *cached) Load(name string) (Func, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if fn, ok := c.funcs[name]; ok {
		return fn, nil
	}
	fn, err := c.next.Load(name)
	if err != nil {
		return nil, err
	}
	c.funcs[name] = fn
	return fn, nil
}
