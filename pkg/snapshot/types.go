package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrNotImplemented = errors.New("snapshot: not implemented")

// Ref identifies one persisted checkpoint for one container.
type Ref struct {
	ContainerID string
	State       string
}

// Meta is storage-owned metadata used for trace/audit purposes.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves one checkpoint for a single container reference.
type Store[T any] interface {
	Load(ctx context.Context, ref Ref) (snapshot T, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot T, meta Meta) (Meta, error)
}

// Identifier returns the deterministic storage key for the reference.
func (r Ref) Identifier() (string, error) {
	if r.ContainerID == "" {
		return "", fmt.Errorf("snapshot: container id is required")
	}
	if r.State == "" {
		return fmt.Sprintf("checkpoint/%s", r.ContainerID), nil
	}
	return fmt.Sprintf("checkpoint/%s/%s", r.ContainerID, r.State), nil
}
