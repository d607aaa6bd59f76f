package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// fileState is one valid read of the watched file.
type fileState struct {
	cfg   *Config
	sum   [sha256.Size]byte
	mtime time.Time
}

func readState(path string) (fileState, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileState{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fileState{}, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return fileState{}, err
	}
	return fileState{cfg: cfg, sum: sha256.Sum256(data), mtime: info.ModTime()}, nil
}

// Watcher reloads a config file when it changes, either on its polling
// interval or on demand through [Watcher.Check]. A change that does not
// validate is logged and the previous config stays current.
type Watcher struct {
	path     string
	interval time.Duration
	onChange func(old, new *Config)

	// checkMu serializes Check so onChange calls never overlap.
	checkMu sync.Mutex
	mu      sync.Mutex
	state   fileState
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. The default is 5 seconds.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher reads path once. Polling starts with [Watcher.Run].
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{path: path, interval: 5 * time.Second, onChange: onChange}
	for _, opt := range opts {
		opt(w)
	}
	st, err := readState(path)
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.state = st
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state.cfg
}

// Check re-reads the file if its modification time moved and reports whether
// the content changed. onChange runs before Check returns.
func (w *Watcher) Check() (bool, error) {
	w.checkMu.Lock()
	defer w.checkMu.Unlock()

	info, err := os.Stat(w.path)
	if err != nil {
		return false, fmt.Errorf("config: stat %s: %w", w.path, err)
	}
	w.mu.Lock()
	prev := w.state
	w.mu.Unlock()
	if info.ModTime().Equal(prev.mtime) {
		return false, nil
	}

	next, err := readState(w.path)
	if err != nil {
		return false, fmt.Errorf("config: reload %s: %w", w.path, err)
	}
	if next.sum == prev.sum {
		// Touched only. Remember the mtime so the next poll skips the read.
		next.cfg = prev.cfg
		w.mu.Lock()
		w.state = next
		w.mu.Unlock()
		return false, nil
	}

	w.mu.Lock()
	w.state = next
	w.mu.Unlock()

	slog.Info("config: reloaded", "path", w.path)
	if w.onChange != nil {
		w.onChange(prev.cfg, next.cfg)
	}
	return true, nil
}

// Run polls until ctx is done. It always returns nil.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Check(); err != nil {
				slog.Warn("config: keeping previous config", "err", err)
			}
		}
	}
}
