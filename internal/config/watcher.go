package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher reloads the config file when it changes on disk and delivers the
// parsed result to a callback. Its main use is repointing the remote memory
// endpoint (primary vs. tunneled) without restarting the agent.
type Watcher struct {
	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	path        string
	onChange    func(*Config)
	logger      *zap.Logger
	debounceDur time.Duration
	lastEvent   time.Time
	running     bool
	doneCh      chan struct{}
}

// NewWatcher creates a watcher for the given config file path.
// onChange is called with the freshly loaded config; invalid file contents
// are logged and skipped, never delivered.
func NewWatcher(path string, onChange func(*Config), logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		watcher:     fw,
		path:        path,
		onChange:    onChange,
		logger:      logger,
		debounceDur: 500 * time.Millisecond, // editors fire several events per save
		doneCh:      make(chan struct{}),
	}, nil
}

// Start begins watching. Non-blocking; stops when ctx is cancelled or Close
// is called.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	// Watch the directory, not the file: most editors replace the file on
	// save, which drops a direct file watch.
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return err
	}
	w.logger.Debug("config watcher started", zap.String("dir", dir))

	w.running = true
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			w.mu.Lock()
			if time.Since(w.lastEvent) < w.debounceDur {
				w.mu.Unlock()
				continue
			}
			w.lastEvent = time.Now()
			w.mu.Unlock()

			cfg, err := Load(w.path)
			if err != nil {
				w.logger.Warn("config reload failed, keeping previous config",
					zap.String("path", w.path), zap.Error(err))
				continue
			}
			w.logger.Info("config reloaded",
				zap.String("remote_url", cfg.EffectiveRemoteURL()))
			w.onChange(cfg)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher and releases its resources.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()
	if running {
		<-w.doneCh
	}
	return err
}
