package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/felixgeelhaar/domguard/domain/action"
	"github.com/felixgeelhaar/domguard/domain/dispatch"
	"github.com/felixgeelhaar/domguard/infrastructure/logging"
)

// Executor applies actions to HTML files. The target handle is a file path.
type Executor struct {
	registry *action.Registry
	root     string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ dispatch.Executor = (*Executor)(nil)

// Option configures an Executor.
type Option func(*Executor)

// WithRoot confines targets to files below dir.
func WithRoot(dir string) Option {
	return func(e *Executor) {
		e.root = filepath.Clean(dir)
	}
}

// NewExecutor creates a document executor over registry.
func NewExecutor(registry *action.Registry, opts ...Option) *Executor {
	e := &Executor{
		registry: registry,
		locks:    make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Invoke parses the file, applies the action and atomically writes the
// result back. Concurrent invocations on one file are serialized. An
// unchanged document is not rewritten.
func (e *Executor) Invoke(ctx context.Context, id action.ID, params action.Params, target string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := e.resolve(target)
	if err != nil {
		return err
	}

	lock := e.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	data, err := os.ReadFile(path) // #nosec G304 -- path is confined by resolve
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", dispatch.ErrTargetUnavailable, target)
		}
		return fmt.Errorf("read document: %w", err)
	}

	doc, err := Parse(bytes.NewReader(data))
	if err != nil {
		return err
	}
	if err := e.registry.Apply(id, params, doc); err != nil {
		return err
	}
	for _, label := range doc.FeedbackLabels() {
		logging.Info().
			Add(logging.Target(target)).
			Add(logging.Str("label", label)).
			Msg("feedback")
	}

	var buf bytes.Buffer
	if err := doc.Render(&buf); err != nil {
		return fmt.Errorf("render document: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if bytes.Equal(buf.Bytes(), data) {
		return nil
	}
	return writeFileAtomic(path, buf.Bytes())
}

func (e *Executor) resolve(target string) (string, error) {
	if strings.TrimSpace(target) == "" {
		return "", fmt.Errorf("%w: empty path", dispatch.ErrTargetUnavailable)
	}
	path := filepath.Clean(target)
	if e.root == "" {
		return path, nil
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.root, path)
	}
	rel, err := filepath.Rel(e.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside %s", dispatch.ErrTargetUnavailable, target, e.root)
	}
	return path, nil
}

func (e *Executor) lockFor(path string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	l, ok := e.locks[path]
	if !ok {
		l = &sync.Mutex{}
		e.locks[path] = l
	}
	return l
}

func writeFileAtomic(path string, data []byte) error {
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".domguard-*.html")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()        // #nosec G104 -- Best effort cleanup
		_ = os.Remove(tmpPath) // #nosec G104 -- Best effort cleanup
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath) // #nosec G104 -- Best effort cleanup
		return fmt.Errorf("failed to write document: %w", err)
	}
	if err := os.Chmod(tmpPath, mode); err != nil {
		_ = os.Remove(tmpPath) // #nosec G104 -- Best effort cleanup
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath) // #nosec G104 -- Best effort cleanup
		return fmt.Errorf("failed to replace document: %w", err)
	}
	return nil
}
