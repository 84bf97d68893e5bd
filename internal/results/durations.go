package results

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// IterationDuration is the wall-clock time of one campaign iteration.
type IterationDuration struct {
	Iteration int     `json:"iteration"`
	Seconds   float64 `json:"seconds"`
}

// Durations is the timing document of a campaign.
type Durations struct {
	Campaign   string              `json:"campaign"`
	Started    time.Time           `json:"started"`
	Iterations []IterationDuration `json:"iterations"`
}

// Add records the duration of iteration.
func (d *Durations) Add(iteration int, elapsed time.Duration) {
	d.Iterations = append(d.Iterations, IterationDuration{Iteration: iteration, Seconds: elapsed.Seconds()})
}

// Total is the sum of all iteration durations.
func (d *Durations) Total() time.Duration {
	var total float64
	for _, it := range d.Iterations {
		total += it.Seconds
	}
	return time.Duration(total * float64(time.Second))
}

// WriteDurations persists d next to the results document.
func (s *Store) WriteDurations(d Durations) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.Iterations == nil {
		d.Iterations = []IterationDuration{}
	}
	return errors.Wrap(s.write(DurationsFile, d), "write durations")
}

// LoadDurations reads the timing document.
func (s *Store) LoadDurations() (*Durations, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, DurationsFile))
	if err != nil {
		return nil, err
	}
	var d Durations
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, errors.Wrap(err, "parse durations")
	}
	return &d, nil
}
