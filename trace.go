package cow

import (
	"encoding/json"
	"time"
)

// Trace captures provenance for a dereference: which backing served the
// value and the promotion history that led the container to its current
// state.
type Trace struct {
	ContainerID string      `json:"container_id,omitempty"`
	State       string      `json:"state"`
	Mode        string      `json:"mode"`
	Promotions  []Promotion `json:"promotions,omitempty"`
}

// Promotion details one copy-on-write promotion.
type Promotion struct {
	From       string    `json:"from"`
	SnapshotID string    `json:"snapshot_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// GetWithTrace dereferences the container and reports the provenance of the
// access alongside the value.
func (c *Cow[T]) GetWithTrace() (*T, Trace) {
	target := c.Get()
	trace := Trace{
		ContainerID: c.ident(),
		State:       c.state.String(),
		Mode:        c.ref.mode.String(),
	}
	if len(c.promotions) > 0 {
		trace.Promotions = append([]Promotion(nil), c.promotions...)
	}
	return target, trace
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated
// via ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
