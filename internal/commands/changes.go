package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/colonyops/taskman/internal/core/task"
	"github.com/colonyops/taskman/internal/store/watch"
)

// watchChanges reports writes to the store made by other sessions. Events
// caused by this process are filtered out by the tracker's version stamp.
func watchChanges(ctx context.Context, ct task.ChangeTracker, log zerolog.Logger) (<-chan string, func(), error) {
	fw, err := watch.New(ct.WatchPaths()...)
	if err != nil {
		return nil, func() {}, fmt.Errorf("watch store: %w", err)
	}

	events := fw.Watch(ctx)
	notices := make(chan string, 1)

	go func() {
		defer close(notices)
		for ev := range events {
			changed, err := ct.ExternalChange(ctx)
			if err != nil {
				log.Warn().Err(err).Str("path", ev.Path).Msg("check store version")
				continue
			}
			if !changed {
				continue
			}

			select {
			case notices <- fmt.Sprintf("Tasks were changed by another session (%s).", filepath.Base(ev.Path)):
			default:
				// a notice is already pending
			}
		}
	}()

	return notices, func() { _ = fw.Close() }, nil
}
