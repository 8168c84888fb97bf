package background

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

type Background struct {
	wg  sync.WaitGroup
	log logrus.FieldLogger
}

func New(log logrus.FieldLogger) *Background {
	return &Background{log: log}
}

func (b *Background) Go(fn func() error) {
	b.wg.Add(1)

	go func() {
		defer b.wg.Done()

		defer func() {
			if rec := recover(); rec != nil {
				b.log.WithFields(logrus.Fields{
					"trace": string(debug.Stack()),
				}).Errorf("background task panic: %v", rec)
			}
		}()

		if err := fn(); err != nil {
			b.log.WithFields(logrus.Fields{
				"message": err,
			}).Error("background task")
		}
	}()
}

func (b *Background) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for background tasks: %w", ctx.Err())
	}
}
