// Package watcher monitors the library root and catalogues image files
// dropped into it.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pictoria/pictoria-server/internal/errors"
	"github.com/pictoria/pictoria-server/internal/service"
)

// DefaultSettleDelay is how long a file must stop changing before it is
// considered fully written.
const DefaultSettleDelay = 2 * time.Second

// imageExtensions are the file types the watcher ingests.
var imageExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".bmp":  true,
	".webp": true,
}

// Watcher watches the library root with fsnotify and ingests image files
// once their writes settle.
type Watcher struct {
	root        string
	library     *service.LibraryService
	logger      *slog.Logger
	settleDelay time.Duration

	fs      *fsnotify.Watcher
	pending map[string]*pendingFile
	mu      sync.Mutex
	done    chan struct{}
	wg      sync.WaitGroup
}

// pendingFile tracks a file that may still be changing.
type pendingFile struct {
	size    int64
	modTime time.Time
	timer   *time.Timer
}

// New creates a watcher over the library root.
func New(root string, library *service.LibraryService, logger *slog.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &Watcher{
		root:        root,
		library:     library,
		logger:      logger,
		settleDelay: DefaultSettleDelay,
		fs:          fs,
		pending:     make(map[string]*pendingFile),
		done:        make(chan struct{}),
	}, nil
}

// Start watches the library root recursively and blocks until the context is
// cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watchDir(w.root); err != nil {
		return err
	}
	w.logger.Info("watching library", "root", w.root)

	w.wg.Add(1)
	go w.processEvents(ctx)

	<-ctx.Done()
	return nil
}

// Stop releases the watcher's resources.
func (w *Watcher) Stop() error {
	close(w.done)

	w.mu.Lock()
	for _, p := range w.pending {
		p.timer.Stop()
	}
	clear(w.pending)
	w.mu.Unlock()

	err := w.fs.Close()
	w.wg.Wait()
	return err
}

// watchDir recursively adds watches for a directory tree.
func (w *Watcher) watchDir(root string) error {
	return filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			w.logger.Warn("cannot access path", "path", p, "error", err)
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if strings.HasPrefix(filepath.Base(p), ".") && p != root {
			return filepath.SkipDir
		}
		if err := w.fs.Add(p); err != nil {
			w.logger.Error("cannot watch directory", "path", p, "error", err)
		}
		return nil
	})
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	path := event.Name

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			if err := w.watchDir(path); err != nil {
				w.logger.Error("cannot watch new directory", "path", path, "error", err)
			}
			return
		}
	}

	if event.Op&fsnotify.Remove != 0 {
		w.cancelPending(path)
		return
	}

	if event.Op&(fsnotify.Write|fsnotify.Create) != 0 && isImageFile(path) {
		w.startSettling(ctx, path)
	}
}

// startSettling arms (or re-arms) the settle timer for a file.
func (w *Watcher) startSettling(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if p, exists := w.pending[path]; exists {
		p.timer.Stop()
	}

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		delete(w.pending, path)
		return
	}

	p := &pendingFile{size: info.Size(), modTime: info.ModTime()}
	p.timer = time.AfterFunc(w.settleDelay, func() {
		w.checkSettled(ctx, path)
	})
	w.pending[path] = p
}

// checkSettled ingests the file if it stopped changing, otherwise re-arms the
// timer.
func (w *Watcher) checkSettled(ctx context.Context, path string) {
	w.mu.Lock()
	p, exists := w.pending[path]
	if !exists {
		w.mu.Unlock()
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(w.pending, path)
		w.mu.Unlock()
		return
	}

	if info.Size() != p.size || !info.ModTime().Equal(p.modTime) {
		p.size = info.Size()
		p.modTime = info.ModTime()
		p.timer = time.AfterFunc(w.settleDelay, func() {
			w.checkSettled(ctx, path)
		})
		w.mu.Unlock()
		return
	}

	delete(w.pending, path)
	w.mu.Unlock()

	w.ingest(ctx, path)
}

// ingest catalogues a settled file. Duplicates are logged and skipped.
func (w *Watcher) ingest(ctx context.Context, path string) {
	img, err := w.library.Ingest(ctx, path, nil, false)
	if err != nil {
		if errors.Is(err, errors.ErrDuplicate) || errors.Is(err, errors.ErrAlreadyExists) {
			w.logger.Info("skipped duplicate image", "path", path, "reason", err)
			return
		}
		w.logger.Error("auto-ingestion failed", "path", path, "error", err)
		return
	}
	w.logger.Info("auto-catalogued image", "id", img.ID, "path", path)
}

func (w *Watcher) cancelPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if p, exists := w.pending[path]; exists {
		p.timer.Stop()
		delete(w.pending, path)
	}
}

func isImageFile(path string) bool {
	return imageExtensions[strings.ToLower(filepath.Ext(path))]
}
