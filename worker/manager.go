package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Worker is a long-running job that returns once ctx is cancelled.
type Worker interface {
	Name() string
	Start(ctx context.Context) error
}

// Manager starts and supervises a set of workers.
type Manager struct {
	workers []Worker
}

func NewManager(ws ...Worker) *Manager {
	return &Manager{workers: ws}
}

// Start runs every worker until ctx is cancelled and all of them returned.
// Errors from workers that stopped early are joined.
func (m *Manager) Start(ctx context.Context) error {
	var wg sync.WaitGroup
	errs := make(chan error, len(m.workers))
	for _, w := range m.workers {
		wg.Add(1)
		go func(w Worker) {
			defer wg.Done()
			slog.Info("worker: starting", "worker", w.Name())
			if err := w.Start(ctx); err != nil {
				slog.Error("worker: stopped with error", "worker", w.Name(), "error", err)
				errs <- err
				return
			}
			slog.Info("worker: stopped", "worker", w.Name())
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
	close(errs)
	var all []error
	for err := range errs {
		all = append(all, err)
	}
	return errors.Join(all...)
}
