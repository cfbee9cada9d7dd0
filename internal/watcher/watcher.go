package watcher

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultSettle is how long a new file is left alone before processing so
// the writer can finish.
const DefaultSettle = 500 * time.Millisecond

var videoExtensions = map[string]struct{}{
	".mp4": {}, ".mov": {}, ".avi": {}, ".mkv": {}, ".webm": {}, ".m4v": {}, ".flv": {},
}

// Handler processes one newly created video file. Its context is not
// cancelled when the watcher stops.
type Handler func(ctx context.Context, path string) error

type Config struct {
	Dir           string
	MaxConcurrent int
	Settle        time.Duration
	Log           logrus.FieldLogger
}

type Watcher struct {
	dir       string
	handler   Handler
	log       logrus.FieldLogger
	settle    time.Duration
	fsw       *fsnotify.Watcher
	semaphore chan struct{}
	wg        sync.WaitGroup
}

func New(cfg Config, handler Handler) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create watcher")
	}
	if err := fsw.Add(cfg.Dir); err != nil {
		fsw.Close()
		return nil, errors.Wrapf(err, "watch %s", cfg.Dir)
	}

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = 2
	}
	settle := cfg.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Watcher{
		dir:       cfg.Dir,
		handler:   handler,
		log:       log.WithField("dir", cfg.Dir),
		settle:    settle,
		fsw:       fsw,
		semaphore: make(chan struct{}, maxConcurrent),
	}, nil
}

// Run processes Create events for video files until ctx is done, then waits
// for in-flight handlers to finish. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	w.log.WithField("max_concurrent", cap(w.semaphore)).Info("Watching for new videos")

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Waiting for in-flight analyses to finish")
			w.wg.Wait()
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				w.wg.Wait()
				return errors.New("watcher events channel closed")
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			if !IsVideoFile(event.Name) {
				w.log.WithField("path", event.Name).Debug("Ignoring non-video file")
				continue
			}
			if !w.dispatch(ctx, event.Name) {
				w.wg.Wait()
				return nil
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				w.wg.Wait()
				return errors.New("watcher errors channel closed")
			}
			w.log.WithError(err).Error("Watcher error")
		}
	}
}

// dispatch blocks until a slot is free; it reports false when ctx ended first.
func (w *Watcher) dispatch(ctx context.Context, path string) bool {
	log := w.log.WithField("path", path)
	log.Info("New video detected")

	select {
	case w.semaphore <- struct{}{}:
	case <-ctx.Done():
		log.Warn("Watcher stopped before a slot was free; skipping")
		return false
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer func() { <-w.semaphore }()

		select {
		case <-time.After(w.settle):
		case <-ctx.Done():
			log.Warn("Watcher stopped before the file settled; skipping")
			return
		}
		if err := w.handler(context.WithoutCancel(ctx), path); err != nil {
			log.WithError(err).Error("Analysis failed")
			return
		}
		log.Info("Analysis finished")
	}()
	return true
}

func IsVideoFile(path string) bool {
	_, ok := videoExtensions[strings.ToLower(filepath.Ext(path))]
	return ok
}
