package filewatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// ErrModified is the cause of contexts canceled by watched paths.
var ErrModified = errors.New("watched path is modified")

// UntilModifyContext returns a context that is canceled
// when one of paths is modified (written, created, removed, renamed or chmod-ed).
//
// Files are watched through their directories, so replacing a file (as editors do) is caught.
// In a directory of a watched file, entries named "..*" are also taken as the file,
// since kubernetes swaps them to update ConfigMap volumes.
// For directories, any changes of their entries cancel the context.
//
// # Returns
//
// - context.Context: its cause wraps ErrModified when it is canceled by modification.
//
// - func(): cancel function.
//
// - error: error caused when it fails to start watching.
// If error is not nil, both of the the context and the cancel function are nil.
func UntilModifyContext(ctx context.Context, paths ...string) (context.Context, func(), error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, nil, err
	}

	files := map[string]struct{}{}
	dirs := map[string]struct{}{}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			w.Close()
			return nil, nil, err
		}
		stat, err := os.Stat(abs)
		if err != nil {
			w.Close()
			return nil, nil, err
		}

		target := abs
		if stat.IsDir() {
			dirs[abs] = struct{}{}
		} else {
			files[abs] = struct{}{}
			target = filepath.Dir(abs)
		}
		if err := w.Add(target); err != nil {
			w.Close()
			return nil, nil, err
		}
	}

	watched := func(name string) bool {
		name = filepath.Clean(name)
		if _, ok := files[name]; ok {
			return true
		}
		parent := filepath.Dir(name)
		if _, ok := dirs[parent]; ok {
			return true
		}
		if !strings.HasPrefix(filepath.Base(name), "..") {
			return false
		}
		for f := range files {
			if filepath.Dir(f) == parent {
				return true
			}
		}
		return false
	}

	cctx, cancel := context.WithCancelCause(ctx)
	go func() {
		defer w.Close()
		for {
			select {
			case <-cctx.Done():
				return
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				cancel(fmt.Errorf("%w: watcher is broken: %w", ErrModified, err))
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if !watched(event.Name) {
					continue
				}
				cancel(fmt.Errorf("%w: %s (%s)", ErrModified, event.Name, event.Op.String()))
			}
		}
	}()

	return cctx, func() { cancel(nil) }, nil
}
