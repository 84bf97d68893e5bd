// Package dataset generates the stimulus and golden-result arrays of each
// test and serializes them as a C header/source pair.
package dataset

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/buckleypaul/testit/internal/config"
	"github.com/buckleypaul/testit/internal/fault"
	"github.com/buckleypaul/testit/internal/golden"
)

const headerGuard = "TEST_DATA_H"

// Options configures a Generator.
type Options struct {
	// Sweep resolves ranged parameters from the sweep index instead of
	// drawing them at random.
	Sweep bool
	// Seed makes generation reproducible when non-zero.
	Seed   uint64
	Golden golden.Loader
	// BaseDir anchors relative test directories.
	BaseDir string
	Logger  *zap.Logger
}

// Job asks for the datasets of one test. Index is the test's own sweep
// position and is ignored outside sweep mode.
type Job struct {
	Test  config.TestSpec
	Index int64
}

// Generated describes the files written for one test.
type Generated struct {
	Test   string
	Params []golden.Param
	Header string
	Source string
}

// Generator produces dataset files.
type Generator struct {
	opts   Options
	rng    *rand.Rand
	logger *zap.Logger
}

// New returns a Generator.
func New(opts Options) *Generator {
	seed1, seed2 := opts.Seed, opts.Seed^0x9e3779b97f4a7c15
	if opts.Seed == 0 {
		seed1, seed2 = rand.Uint64(), rand.Uint64()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		opts:   opts,
		rng:    rand.New(rand.NewPCG(seed1, seed2)),
		logger: logger,
	}
}

// Generate writes the dataset files of every job. It stops at the first
// failing test; files of that test are left untouched.
func (g *Generator) Generate(jobs []Job) ([]Generated, error) {
	out := make([]Generated, 0, len(jobs))
	for _, job := range jobs {
		gen, err := g.GenerateTest(job.Test, job.Index)
		if err != nil {
			return out, err
		}
		out = append(out, gen)
	}
	return out, nil
}

// GenerateTest resolves the parameters of test and writes its files.
func (g *Generator) GenerateTest(test config.TestSpec, index int64) (Generated, error) {
	op := "generate " + test.AppName
	gen := Generated{Test: test.AppName}

	dir := test.Dir
	if !filepath.IsAbs(dir) && g.opts.BaseDir != "" {
		dir = filepath.Join(g.opts.BaseDir, dir)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return gen, fault.New(fault.Generation, op, "test directory %s not found", dir)
	}

	if g.opts.Sweep {
		gen.Params = ResolveSweep(test.Parameters, index)
	} else {
		gen.Params = ResolveRandom(test.Parameters, g.rng)
	}

	if len(test.InputDataset) == 0 && len(test.OutputDataset) == 0 {
		return gen, nil
	}

	header, source, err := g.render(test, gen.Params)
	if err != nil {
		return gen, fault.Wrap(fault.Generation, op, err)
	}

	gen.Header = filepath.Join(dir, test.GenFilesName+".h")
	gen.Source = filepath.Join(dir, test.GenFilesName+".c")
	if err := writeFileAtomic(gen.Header, header); err != nil {
		return gen, fault.Wrap(fault.Generation, op, err)
	}
	if err := writeFileAtomic(gen.Source, source); err != nil {
		return gen, fault.Wrap(fault.Generation, op, err)
	}

	g.logger.Debug("datasets generated",
		zap.String("test", test.AppName),
		zap.Int64("index", index),
		zap.String("header", gen.Header))
	return gen, nil
}

type array struct {
	spec   config.DatasetSpec
	tensor golden.Tensor
}

func (g *Generator) render(test config.TestSpec, params []golden.Param) (header, source []byte, err error) {
	var inputs []array
	for _, d := range test.InputDataset {
		shape, err := Shape(d, params)
		if err != nil {
			return nil, nil, err
		}
		t, err := Random(d, shape, g.rng)
		if err != nil {
			return nil, nil, err
		}
		inputs = append(inputs, array{spec: d, tensor: t})
	}

	outputs, err := g.goldenOutputs(test, inputs, params)
	if err != nil {
		return nil, nil, err
	}

	all := append(inputs, outputs...)
	return renderHeader(params, all), renderSource(test.GenFilesName, all), nil
}

func (g *Generator) goldenOutputs(test config.TestSpec, inputs []array, params []golden.Param) ([]array, error) {
	if len(test.OutputDataset) == 0 {
		return nil, nil
	}
	name := test.GoldenResultFunction.Name
	if g.opts.Golden == nil {
		return nil, errors.Errorf("no golden loader for function %s", name)
	}
	fn, err := g.opts.Golden.Load(name)
	if err != nil {
		return nil, err
	}

	in := make([]golden.Tensor, len(inputs))
	for i, a := range inputs {
		in[i] = a.tensor
	}
	results, err := fn(in, params)
	if err != nil {
		return nil, errors.Wrapf(err, "golden function %s", name)
	}
	if len(results) != len(test.OutputDataset) {
		return nil, errors.Errorf("golden function %s returned %d outputs, %d declared", name, len(results), len(test.OutputDataset))
	}

	outputs := make([]array, len(results))
	for i, r := range results {
		if len(r.Shape) == 0 {
			r.Shape = []int{r.Len()}
		}
		if r.Size() != r.Len() {
			return nil, errors.Errorf("golden function %s: output %d has shape %v but %d elements", name, i, r.Shape, r.Len())
		}
		outputs[i] = array{spec: test.OutputDataset[i], tensor: r}
	}
	return outputs, nil
}

func renderHeader(params []golden.Param, arrays []array) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "#ifndef %s\n#define %s\n\n", headerGuard, headerGuard)
	b.WriteString("#include <stdint.h>\n\n")
	for _, p := range params {
		fmt.Fprintf(&b, "#define %s %s\n", p.Name, p.Text)
	}
	b.WriteString("\n")
	for _, a := range arrays {
		fmt.Fprintf(&b, "extern const %s %s[%d];\n", a.spec.DataType, a.spec.Name, a.tensor.Len())
	}
	fmt.Fprintf(&b, "\n#endif // %s\n", headerGuard)
	return []byte(b.String())
}

func renderSource(genFilesName string, arrays []array) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "#include \"%s.h\"\n\n", genFilesName)
	for _, a := range arrays {
		fmt.Fprintf(&b, "const %s %s[%d] = {\n", a.spec.DataType, a.spec.Name, a.tensor.Len())
		if a.tensor.Len() > 0 {
			b.WriteString(FormatArray(FormatValues(a.tensor, a.spec.DataType), a.tensor.Shape))
		}
		b.WriteString("};\n\n")
	}
	return []byte(b.String())
}

// writeFileAtomic replaces path with data through a temporary file in the
// same directory.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
