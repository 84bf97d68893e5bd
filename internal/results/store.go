package results

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

const (
	ResultsFile   = "test_results.json"
	DurationsFile = "test_durations.json"
	ReportFile    = "report.rpt"
)

// Store persists a campaign's results document in a report directory.
// Every Append rewrites the whole document, so one campaign at a time may
// write to a directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New creates a Store for dir. The directory is created on first write.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the report directory.
func (s *Store) Dir() string { return s.dir }

// Path returns the results document path.
func (s *Store) Path() string {
	return filepath.Join(s.dir, ResultsFile)
}

// Clear removes the results document.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.Path()); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "clear results")
	}
	return nil
}

// Append adds records under test, each stamped with iteration.
func (s *Store) Append(test string, iteration int, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}

	stamped := make([]Record, len(records))
	for i, r := range records {
		r.Iteration = iteration
		stamped[i] = r
	}
	doc.Add(test, stamped...)

	return s.write(ResultsFile, doc)
}

// Load reads the results document. A missing document is empty.
func (s *Store) Load() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*Document, error) {
	doc := &Document{}
	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, errors.Wrap(err, "read results")
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, errors.Wrapf(err, "parse %s", s.Path())
	}
	return doc, nil
}

// write replaces name in the report directory with v as indented JSON.
func (s *Store) write(name string, v any) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(s.dir, name))
}
