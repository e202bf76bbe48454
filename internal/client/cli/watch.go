package cli

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"
)

// Watch запускает фоновые циклы (отправку очереди и подписку на поток) до отмены ctx
func (c *Cli) Watch(ctx context.Context, runners ...Runner) error {
	c.io.Println("Watching for changes, press Ctrl+C to stop.")

	g, gctx := errgroup.WithContext(ctx)
	for _, r := range runners {
		g.Go(func() error {
			return r.Run(gctx)
		})
	}

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
