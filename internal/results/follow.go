package results

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// followDebounce absorbs the burst of events of one document rewrite.
const followDebounce = 100 * time.Millisecond

// Follow calls onChange once, then again each time the results document is
// rewritten, until ctx ends.
func (s *Store) Follow(ctx context.Context, onChange func() error) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create watcher")
	}
	defer watcher.Close()

	// The document is replaced by rename, so watch the directory.
	if err := watcher.Add(s.dir); err != nil {
		return errors.Wrapf(err, "watch %s", s.dir)
	}

	if err := onChange(); err != nil {
		return err
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != ResultsFile {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
				pending = time.After(followDebounce)
			}

		case <-pending:
			pending = nil
			if err := onChange(); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return errors.Wrap(err, "watch results")
		}
	}
}
