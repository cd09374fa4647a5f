package document

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/felixgeelhaar/domguard/domain/action"
	"github.com/felixgeelhaar/domguard/infrastructure/logging"
)

// DefaultDebounce coalesces the burst of events one save produces.
const DefaultDebounce = 100 * time.Millisecond

// Watch applies the action to target and re-applies it every time the file
// is rewritten, until ctx is done. notify, if set, receives the result of
// each application. Re-applying is safe because actions are idempotent and
// unchanged documents are not rewritten.
func (e *Executor) Watch(ctx context.Context, id action.ID, params action.Params, target string, notify func(error)) error {
	path, err := e.resolve(target)
	if err != nil {
		return err
	}
	if notify == nil {
		notify = func(error) {}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = watcher.Close()
	}()

	// Atomic saves replace the inode, so the directory is watched.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", target, err)
	}

	apply := func() {
		err := e.Invoke(ctx, id, params, target)
		if err != nil && ctx.Err() == nil {
			logging.Warn().
				Add(logging.Target(target)).
				Add(logging.ActionID(id)).
				Add(logging.ErrorField(err)).
				Msg("re-apply failed")
		}
		notify(err)
	}
	apply()

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(DefaultDebounce)
			} else {
				timer.Reset(DefaultDebounce)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			apply()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", target, err)
		}
	}
}
