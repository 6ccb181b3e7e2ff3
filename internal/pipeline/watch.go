package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"medrag/internal/domain"
)

// DefaultDebounce is the quiet period before a changed source is processed.
const DefaultDebounce = 500 * time.Millisecond

// debouncer coalesces bursts of events per key into one call.
type debouncer struct {
	delay time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
	wg     sync.WaitGroup
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay, timers: make(map[string]*time.Timer)}
}

func (d *debouncer) add(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if t, ok := d.timers[key]; ok && t.Stop() {
		d.wg.Done()
	}
	d.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(d.delay, func() {
		defer d.wg.Done()
		d.mu.Lock()
		if d.timers[key] == t {
			delete(d.timers, key)
		}
		d.mu.Unlock()
		fn()
	})
	d.timers[key] = t
}

// stop cancels pending timers and waits for running callbacks.
func (d *debouncer) stop() {
	d.mu.Lock()
	d.closed = true
	for k, t := range d.timers {
		if t.Stop() {
			d.wg.Done()
		}
		delete(d.timers, k)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Watch re-chunks and re-annotates a source after it is created or written
// in a raw category directory. It blocks until ctx is cancelled. processed is
// called after each document, with the error of that document if any.
func (p *Pipeline) Watch(ctx context.Context, delay time.Duration, processed func(Source, error)) error {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	cats, err := p.categories(p.cfg.RawDir)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	dirs := make(map[string]string, len(cats))
	for _, cat := range cats {
		dir := filepath.Clean(filepath.Join(p.cfg.RawDir, cat))
		if err := w.Add(dir); err != nil {
			p.logger.Warn("cannot watch category", "dir", dir, "error", err)
			continue
		}
		dirs[dir] = cat
	}
	if len(dirs) == 0 {
		return fmt.Errorf("%w: no raw category directory to watch under %s", domain.ErrConfig, p.cfg.RawDir)
	}
	p.logger.Info("watching raw sources", "dirs", len(dirs))

	deb := newDebouncer(delay)
	defer deb.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			cat, ok := dirs[filepath.Dir(filepath.Clean(ev.Name))]
			if !ok || !p.Matches(ev.Name) {
				continue
			}
			src := Source{Category: cat, Path: ev.Name}
			p.logger.Debug("source changed", "doc", ev.Name, "op", ev.Op.String())
			deb.add(ev.Name, func() {
				err := p.Refresh(ctx, src)
				if err != nil {
					p.logger.Error("refresh failed", "doc", src.Path, "error", err)
				}
				if processed != nil {
					processed(src, err)
				}
			})
		case werr, ok := <-w.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			p.logger.Error("fsnotify error", "error", werr)
		}
	}
}

// Refresh re-chunks one source and re-annotates its document directory.
func (p *Pipeline) Refresh(ctx context.Context, src Source) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return guard(func() error {
		_, outcome, err := p.ChunkSource(src)
		if err != nil {
			return err
		}
		if outcome == Skipped {
			return nil
		}
		_, err = p.AnnotateDocument(p.DocumentDir(src))
		return err
	})
}
