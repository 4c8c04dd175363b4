package scripts

import (
	"context"
	"log/slog"

	"github.com/rjeczalik/notify"
)

const eventBufferSize = 64

// Watch invalidates the index whenever something below the root changes. It blocks until ctx is done.
func (idx *ScriptIndex) Watch(ctx context.Context) error {
	events := make(chan notify.EventInfo, eventBufferSize)

	recursivePath := idx.rootDir + "/..."
	if err := notify.Watch(recursivePath, events, notify.All); err != nil {
		return err
	}
	defer notify.Stop(events)

	idx.watching.Store(true)
	defer func() {
		idx.watching.Store(false)
		idx.Invalidate(idx.rootDir)
	}()

	slog.Info("scripts watcher start", "dir", idx.rootDir)
	for {
		select {
		case <-ctx.Done():
			slog.Info("scripts watcher stop")
			return nil
		case ev := <-events:
			slog.Debug("scripts changed", "event", ev.Event().String(), "path", ev.Path())
			idx.Invalidate(ev.Path())
		}
	}
}
