package results

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cycles(records []Record) []string {
	var out []string
	for _, r := range records {
		v, _ := r.Get("Cycles")
		out = append(out, v)
	}
	return out
}

func TestSortRecordsNumeric(t *testing.T) {
	records := []Record{rec("Cycles", "900"), rec("Cycles", "1200"), rec("Cycles", "85")}

	assert.Equal(t, []string{"85", "900", "1200"}, cycles(SortRecords(records, "Cycles", true)))
	assert.Equal(t, []string{"1200", "900", "85"}, cycles(SortRecords(records, "Cycles", false)))
	// Input untouched.
	assert.Equal(t, []string{"900", "1200", "85"}, cycles(records))
}

func TestSortRecordsLexicalFallback(t *testing.T) {
	records := []Record{rec("Cycles", "b"), rec("Cycles", "10"), rec("Cycles", "a")}
	assert.Equal(t, []string{"10", "a", "b"}, cycles(SortRecords(records, "Cycles", true)))
}

func TestSortRecordsMixedColumnIsLexical(t *testing.T) {
	want := []string{"10", "1a", "9"}
	for _, order := range [][]string{{"10", "9", "1a"}, {"1a", "10", "9"}, {"9", "1a", "10"}} {
		records := make([]Record, len(order))
		for i, v := range order {
			records[i] = rec("Cycles", v)
		}
		assert.Equal(t, want, cycles(SortRecords(records, "Cycles", true)), "input %v", order)
		assert.Equal(t, []string{"9", "1a", "10"}, cycles(SortRecords(records, "Cycles", false)), "input %v", order)
	}
}

func TestSortRecordsByIteration(t *testing.T) {
	records := []Record{{Iteration: 10}, {Iteration: 2}, {Iteration: 1}}
	sorted := SortRecords(records, IterationKey, true)
	assert.Equal(t, []int{1, 2, 10}, []int{sorted[0].Iteration, sorted[1].Iteration, sorted[2].Iteration})
}

func TestReportWritesExport(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Append("t1", 0, []Record{rec("ID", "3", "Cycles", "1200", "Outcome", "PASS")}))
	require.NoError(t, s.Append("t1", 1, []Record{rec("ID", "3", "Cycles", "950", "Outcome", "PASS")}))
	require.NoError(t, s.Append("t2", 0, []Record{rec("Err", "0")}))

	var console bytes.Buffer
	require.NoError(t, s.Report(&console, ReportOptions{SortKey: "Cycles", Ascending: true}))

	export, err := os.ReadFile(filepath.Join(dir, ReportFile))
	require.NoError(t, err)
	text := string(export)

	for _, want := range []string{"t1", "t2", "iteration", "Cycles", "Outcome", "PASS", "Err"} {
		assert.Contains(t, text, want)
	}
	assert.Less(t, strings.Index(text, "950"), strings.Index(text, "1200"), "rows should be sorted by Cycles")
	assert.Contains(t, console.String(), "1200")
}

func TestReportPlainMatchesExport(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	require.NoError(t, s.Append("t1", 0, []Record{rec("ID", "1")}))

	var console bytes.Buffer
	require.NoError(t, s.Report(&console, ReportOptions{Plain: true}))
	export, _ := os.ReadFile(filepath.Join(dir, ReportFile))
	assert.Equal(t, string(export), console.String())
}

func TestReportEmpty(t *testing.T) {
	var console bytes.Buffer
	require.NoError(t, New(t.TempDir()).Report(&console, ReportOptions{}))
	assert.Contains(t, console.String(), "No results")
}

func TestFollowRendersOnAppend(t *testing.T) {
	s := New(t.TempDir())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var renders atomic.Int32
	done := make(chan error, 1)
	go func() {
		done <- s.Follow(ctx, func() error {
			if renders.Add(1) == 2 {
				cancel()
			}
			return nil
		})
	}()

	// Wait for the initial render so the watcher is in place.
	require.Eventually(t, func() bool { return renders.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, s.Append("t1", 0, []Record{rec("ID", "1")}))

	require.NoError(t, <-done)
	assert.GreaterOrEqual(t, renders.Load(), int32(2))
	assert.ErrorIs(t, ctx.Err(), context.Canceled, "follow should stop through cancel, not the deadline")
}
