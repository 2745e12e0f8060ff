package cow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-cow/pkg/snapshot"
)

// WithCheckpointStore persists the pre-promotion target to store each time a
// copy-on-write promotion runs, keyed by the container ID and the state that
// was active. Failures do not block the promotion; they surface from the
// next Guard.Commit.
func WithCheckpointStore[T any](store snapshot.Store[T]) Option[T] {
	return func(cfg *cowConfig[T]) {
		cfg.checkpoints = store
	}
}

// checkpoint saves target before promotion copies it, returning the snapshot
// ID recorded in the promotion history. Returns "" when no store is
// configured or the save failed.
func (c *Cow[T]) checkpoint(from state, target T) string {
	if c.cfg.checkpoints == nil {
		return ""
	}
	ref := snapshot.Ref{
		ContainerID: c.ident(),
		State:       from.String(),
	}
	meta := snapshot.Meta{
		SnapshotID: uuid.NewString(),
		UpdatedAt:  time.Now(),
	}
	saved, err := c.cfg.checkpoints.Save(context.Background(), ref, target, meta)
	if err != nil {
		c.pendingErr = fmt.Errorf("cow: checkpoint %s: %w", ref.ContainerID, err)
		return ""
	}
	return saved.SnapshotID
}
