package matcher

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// StopwordWatcher keeps a matcher's stopword set in sync with a file on disk.
type StopwordWatcher struct {
	path    string
	matcher *Matcher
	watcher *fsnotify.Watcher
	logger  *zap.Logger
}

// NewStopwordWatcher loads path into m and starts watching its directory.
// Editors usually replace files by rename, so the directory is watched
// rather than the file itself.
func NewStopwordWatcher(path string, m *Matcher, logger *zap.Logger) (*StopwordWatcher, error) {
	sw, err := LoadStopwords(path)
	if err != nil {
		return nil, err
	}
	m.SetStopwords(sw)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("error creating file watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return nil, fmt.Errorf("error watching %s: %w", path, err)
	}

	logger.Info("Loaded stopwords", zap.String("path", path), zap.Int("count", len(sw)))

	return &StopwordWatcher{
		path:    filepath.Clean(path),
		matcher: m,
		watcher: w,
		logger:  logger,
	}, nil
}

// Run reloads the stopwords whenever the file changes, until ctx is done.
// A file that fails to parse leaves the previous set in place.
func (w *StopwordWatcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Stopword watcher error", zap.Error(err))
		}
	}
}

func (w *StopwordWatcher) reload() {
	sw, err := LoadStopwords(w.path)
	if err != nil {
		w.logger.Warn("Failed to reload stopwords, keeping previous set",
			zap.Error(err),
			zap.String("path", w.path))
		return
	}
	w.matcher.SetStopwords(sw)
	w.logger.Info("Reloaded stopwords", zap.String("path", w.path), zap.Int("count", len(sw)))
}
