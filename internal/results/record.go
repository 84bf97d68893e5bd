// Package results persists the records classified from test output and
// renders them as per-test tables.
package results

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// IterationKey is the column every record starts with.
const IterationKey = "iteration"

// Field is one tagged value captured from test output.
type Field struct {
	Key   string
	Value string
}

// Record is one matched output line: the iteration it came from and its
// tagged values in declaration order.
type Record struct {
	Iteration int
	Fields    []Field
}

// Get returns the value of key, including IterationKey.
func (r Record) Get(key string) (string, bool) {
	if key == IterationKey {
		return strconv.Itoa(r.Iteration), true
	}
	for _, f := range r.Fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Keys returns IterationKey followed by the field keys.
func (r Record) Keys() []string {
	keys := make([]string, 0, len(r.Fields)+1)
	keys = append(keys, IterationKey)
	for _, f := range r.Fields {
		keys = append(keys, f.Key)
	}
	return keys
}

// MarshalJSON writes the record as an object with iteration first and the
// fields in order.
func (r Record) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "{%q:%d", IterationKey, r.Iteration)
	for _, f := range r.Fields {
		k, _ := json.Marshal(f.Key)
		v, _ := json.Marshal(f.Value)
		b.WriteByte(',')
		b.Write(k)
		b.WriteByte(':')
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

// UnmarshalJSON reads an object keeping key order. Non-string values other
// than the iteration are kept in their JSON text.
func (r *Record) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}

	*r = Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return errors.Errorf("record key %v is not a string", tok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if key == IterationKey {
			if err := json.Unmarshal(raw, &r.Iteration); err != nil {
				return errors.Wrap(err, "record iteration")
			}
			continue
		}

		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			s = string(raw)
		}
		r.Fields = append(r.Fields, Field{Key: key, Value: s})
	}
	return expectDelim(dec, '}')
}

// TestResults holds the records of one test.
type TestResults struct {
	Name    string
	Records []Record
}

// Document is the persisted results of a campaign, tests in first-seen
// order.
type Document struct {
	Tests []TestResults
}

// Test returns the results of name, or nil.
func (d *Document) Test(name string) *TestResults {
	for i := range d.Tests {
		if d.Tests[i].Name == name {
			return &d.Tests[i]
		}
	}
	return nil
}

// Add appends records under name, creating the test entry when needed.
func (d *Document) Add(name string, records ...Record) {
	t := d.Test(name)
	if t == nil {
		d.Tests = append(d.Tests, TestResults{Name: name})
		t = &d.Tests[len(d.Tests)-1]
	}
	t.Records = append(t.Records, records...)
}

func (d Document) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, t := range d.Tests {
		if i > 0 {
			b.WriteByte(',')
		}
		k, _ := json.Marshal(t.Name)
		b.Write(k)
		b.WriteByte(':')

		records := t.Records
		if records == nil {
			records = []Record{}
		}
		v, err := json.Marshal(records)
		if err != nil {
			return nil, err
		}
		b.Write(v)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (d *Document) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := expectDelim(dec, '{'); err != nil {
		return err
	}

	*d = Document{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return errors.Errorf("test name %v is not a string", tok)
		}
		var records []Record
		if err := dec.Decode(&records); err != nil {
			return errors.Wrapf(err, "records of %s", name)
		}
		d.Add(name, records...)
	}
	return expectDelim(dec, '}')
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return errors.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}
