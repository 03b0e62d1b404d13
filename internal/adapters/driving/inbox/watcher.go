// Package inbox ingests documents dropped into a watched directory tree.
//
// Layout:
//
//	<root>/users/<user_id>/<file>        personal medical record
//	<root>/global/<disease_name>/<file>  shared reference document
//
// Ingested files move to <root>/.processed and rejected ones to
// <root>/.failed, mirroring their inbox path.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pulseiq/pulseiq-rag/internal/core/domain"
	"github.com/pulseiq/pulseiq-rag/internal/core/ports/driving"
	"github.com/pulseiq/pulseiq-rag/internal/logger"
)

// DefaultSettle is how long a file must go without writes before it is
// ingested.
const DefaultSettle = 500 * time.Millisecond

// Watcher routes files from an inbox directory into the ingestion service.
type Watcher struct {
	root   string
	ingest driving.IngestionService
	settle time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
	done    chan struct{}

	// onResult is called after each file is handled. Tests hook it.
	onResult func(path string, result *driving.IngestResult, err error)
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithSettle sets the quiet period before a written file is ingested.
func WithSettle(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.settle = d
		}
	}
}

// WithResultHook registers fn to observe every handled file.
func WithResultHook(fn func(path string, result *driving.IngestResult, err error)) Option {
	return func(w *Watcher) {
		w.onResult = fn
	}
}

// New creates a watcher over root.
func New(root string, ingest driving.IngestionService, opts ...Option) (*Watcher, error) {
	if ingest == nil {
		return nil, ErrMissingIngestionService
	}
	if root == "" {
		return nil, ErrMissingRoot
	}

	w := &Watcher{
		root:    filepath.Clean(root),
		ingest:  ingest,
		settle:  DefaultSettle,
		pending: make(map[string]*time.Timer),
		ready:   make(chan string, 64),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Root returns the inbox directory.
func (w *Watcher) Root() string {
	return w.root
}

// Run creates the inbox layout, ingests files already present, then
// watches for new ones until ctx is cancelled. A Watcher runs once.
func (w *Watcher) Run(ctx context.Context) error {
	for _, dir := range []string{UsersDir, GlobalDir} {
		if err := os.MkdirAll(filepath.Join(w.root, dir), 0o755); err != nil {
			return fmt.Errorf("creating inbox: %w", err)
		}
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer fw.Close()
	defer func() {
		w.stopTimers()
		close(w.done)
	}()

	existing, err := w.addTree(fw)
	if err != nil {
		return err
	}
	logger.Info("Watching inbox %s", w.root)

	for _, path := range existing {
		w.handle(ctx, path)
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.onEvent(fw, event)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Inbox watcher error: %v", err)

		case path := <-w.ready:
			w.handle(ctx, path)
		}
	}
}

// addTree watches every non-hidden directory under users/ and global/
// and returns the routable files already present.
func (w *Watcher) addTree(fw *fsnotify.Watcher) ([]string, error) {
	var files []string
	for _, top := range []string{UsersDir, GlobalDir} {
		err := filepath.WalkDir(filepath.Join(w.root, top), func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if isHidden(d.Name()) {
					return filepath.SkipDir
				}
				return fw.Add(path)
			}
			if _, ok := Route(w.root, path); ok {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("watching inbox: %w", err)
		}
	}
	return files, nil
}

func (w *Watcher) onEvent(fw *fsnotify.Watcher, event fsnotify.Event) {
	info, err := os.Stat(event.Name)
	isDir := err == nil && info.IsDir()

	switch classify(event, isDir) {
	case eventDir:
		if err := fw.Add(event.Name); err != nil {
			logger.Warn("Cannot watch %s: %v", event.Name, err)
			return
		}
		// Files copied in with the directory produce no events of their own.
		entries, _ := os.ReadDir(event.Name)
		for _, e := range entries {
			if !e.IsDir() {
				w.schedule(filepath.Join(event.Name, e.Name()))
			}
		}
	case eventFile:
		w.schedule(event.Name)
	case eventIgnored:
	}
}

// schedule (re)starts the settle timer for path.
func (w *Watcher) schedule(path string) {
	if _, ok := Route(w.root, path); !ok {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// handle ingests path and files it under .processed or .failed. A file
// interrupted by cancellation stays in place for the next run.
func (w *Watcher) handle(ctx context.Context, path string) {
	result, err := w.Ingest(ctx, path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}

	log := logger.WithFields(map[string]any{"file": path})
	if errors.Is(err, context.Canceled) {
		log.Debug("Inbox ingestion interrupted, leaving file in place")
		return
	}
	dest := processedDir
	if err != nil {
		dest = failedDir
		log.WithError(err).Warn("Inbox file rejected")
	} else {
		log.WithFields(map[string]any{
			"document": result.DocumentID,
			"scope":    string(result.Scope),
			"chunks":   result.ChunksAdded,
		}).Info("Inbox file ingested")
	}

	if moveErr := w.archive(path, dest); moveErr != nil {
		log.WithError(moveErr).Warn("Cannot archive inbox file")
	}
	if w.onResult != nil {
		w.onResult(path, result, err)
	}
}

// Ingest reads path and sends it to the ingestion service according to
// its place in the inbox.
func (w *Watcher) Ingest(ctx context.Context, path string) (*driving.IngestResult, error) {
	target, ok := Route(w.root, path)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not inside users/<id>/ or global/<disease>/", domain.ErrInvalidInput, path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw := &domain.RawDocument{
		FileName: filepath.Base(path),
		Content:  content,
	}

	if target.IsGlobal() {
		return w.ingest.IngestGlobalDocument(ctx, target.DiseaseName, raw)
	}
	return w.ingest.IngestUserRecord(ctx, target.UserID, raw)
}

// archive moves path under root/dest, keeping its inbox-relative path.
func (w *Watcher) archive(path, dest string) error {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return err
	}
	target := filepath.Join(w.root, dest, rel)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if _, err := os.Stat(target); err == nil {
		target = fmt.Sprintf("%s.%d", target, time.Now().UnixNano())
	}
	return os.Rename(path, target)
}
