package golden

import (
	_ "embed"
	"os"
	"reflect"
	"sync"

	"github.com/pkg/errors"
	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
	"go.uber.org/zap"
)

// ImportPath is the package path golden scripts import for Tensor and Param.
const ImportPath = "testit/golden"

// Template is the golden script written by 'testit setup'.
//
//go:embed scripts/matmul.go.tmpl
var Template []byte

// Exports are the symbols visible to scripts under ImportPath.
var Exports = interp.Exports{
	ImportPath + "/golden": {
		"Tensor":   reflect.ValueOf((*Tensor)(nil)),
		"Param":    reflect.ValueOf((*Param)(nil)),
		"Ints":     reflect.ValueOf(Ints),
		"Floats":   reflect.ValueOf(Floats),
		"Lookup":   reflect.ValueOf(Lookup),
		"IntParam": reflect.ValueOf(IntParam),
	},
}

// ScriptLoader resolves functions from a Go source file interpreted with
// yaegi. The file is package main; its functions take the form
//
//	func Name(inputs []golden.Tensor, params []golden.Param) ([]golden.Tensor, error)
//
// or the same without the error result.
type ScriptLoader struct {
	Path   string
	Logger *zap.Logger

	once   sync.Once
	interp *interp.Interpreter
	err    error
}

// NewScriptLoader returns a loader for the script at path. The script is
// read on first use.
func NewScriptLoader(path string, logger *zap.Logger) *ScriptLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScriptLoader{Path: path, Logger: logger}
}

func (s *ScriptLoader) init() {
	src, err := os.ReadFile(s.Path)
	if err != nil {
		s.err = errors.Wrap(err, "read golden script")
		return
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		s.err = errors.Wrap(err, "load stdlib symbols")
		return
	}
	if err := i.Use(Exports); err != nil {
		s.err = errors.Wrap(err, "load golden symbols")
		return
	}
	if _, err := i.Eval(string(src)); err != nil {
		s.err = errors.Wrapf(err, "evaluate %s", s.Path)
		return
	}
	s.interp = i
	s.Logger.Debug("golden script loaded", zap.String("path", s.Path))
}

func (s *ScriptLoader) Load(name string) (Func, error) {
	s.once.Do(s.init)
	if s.err != nil {
		return nil, s.err
	}

	v, err := s.interp.Eval("main." + name)
	if err != nil {
		return nil, &NotFoundError{Name: name}
	}

	switch fn := v.Interface().(type) {
	case func([]Tensor, []Param) ([]Tensor, error):
		return fn, nil
	case func([]Tensor, []Param) []Tensor:
		return func(in []Tensor, params []Param) ([]Tensor, error) {
			return fn(in, params), nil
		}, nil
	default:
		return nil, errors.Errorf("golden function %s has type %T, want func([]golden.Tensor, []golden.Param) ([]golden.Tensor, error)", name, fn)
	}
}
