package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"taskconsole/internal/storage"
)

// Watcher keeps the store's claims snapshot current without user action.
// Token changes originate from places the process cannot intercept
// synchronously (login, another replica over a shared store, manual edits),
// so it reconciles by polling plus an explicit focus signal, comparing the
// stored token against the last value it observed.
type Watcher struct {
	store    *Store
	storage  storage.Store
	interval time.Duration
	logger   *zap.Logger

	focus    chan struct{}
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// last observed token; lastSet distinguishes absent from empty.
	last    string
	lastSet bool
}

func NewWatcher(store *Store, st storage.Store, interval time.Duration, logger *zap.Logger) *Watcher {
	return &Watcher{
		store:    store,
		storage:  st,
		interval: interval,
		logger:   logger,
		focus:    make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the watch loop. It returns immediately; the loop ends when
// Stop is called or ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) {
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.stop:
				return
			case <-ticker.C:
				w.check(ctx)
			case <-w.focus:
				w.check(ctx)
			}
		}
	}()
}

// Focus signals that the owning surface regained attention and the token
// should be reconciled now rather than at the next tick.
func (w *Watcher) Focus() {
	select {
	case w.focus <- struct{}{}:
	default:
	}
}

// Stop releases the ticker and the watch goroutine. Safe to call more than
// once; only the first call has effect.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
	})
	<-w.done
}

func (w *Watcher) check(ctx context.Context) {
	cur, ok, err := w.storage.Get(ctx, storage.KeyAuthToken)
	if err != nil {
		w.logger.Error("watcher failed to read token", zap.Error(err))
		return
	}
	changed := ok != w.lastSet || cur != w.last
	// The last-observed value advances on every comparison, refresh or not.
	w.last = cur
	w.lastSet = ok
	if changed {
		w.logger.Debug("stored token changed, refreshing claims")
		w.store.Refresh(ctx)
	}
}
