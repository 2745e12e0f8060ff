package cow

import (
	"context"

	"github.com/goliatone/go-cow/pkg/activity"
)

// WithActivityHooks attaches lifecycle hooks to the container configuration.
// Hooks are cloned and nil entries dropped to preserve immutability.
func WithActivityHooks[T any](hooks activity.Hooks) Option[T] {
	normalized := cloneActivityHooks(hooks)
	return func(cfg *cowConfig[T]) {
		cfg.activityHooks = normalized
	}
}

// WithActivityChannel overrides the channel stamped on emitted lifecycle
// events.
func WithActivityChannel[T any](channel string) Option[T] {
	return func(cfg *cowConfig[T]) {
		cfg.channel = channel
	}
}

// ActivityHooks returns a cloned slice of lifecycle hooks configured on the
// container. The returned slice can be safely mutated by the caller.
func (c *Cow[T]) ActivityHooks() activity.Hooks {
	if c == nil {
		return nil
	}
	return cloneActivityHooks(c.cfg.activityHooks)
}

func cloneActivityHooks(hooks activity.Hooks) activity.Hooks {
	if len(hooks) == 0 {
		return nil
	}
	normalized := make([]activity.ActivityHook, 0, len(hooks))
	for _, hook := range hooks {
		if hook == nil {
			continue
		}
		normalized = append(normalized, hook)
	}
	if len(normalized) == 0 {
		return nil
	}
	return activity.Hooks(normalized)
}

func (c *Cow[T]) emitCreated() {
	c.emit(activity.BuildCowCreatedEvent, activity.CowEventInput{})
}

func (c *Cow[T]) emitPromoted(from state, snapshotID string) {
	c.emit(activity.BuildCowPromotedEvent, activity.CowEventInput{
		From:       from.String(),
		SnapshotID: snapshotID,
	})
}

func (c *Cow[T]) emitMutated() {
	c.emit(activity.BuildCowMutatedEvent, activity.CowEventInput{
		NewValue: c.owned,
	})
}

func (c *Cow[T]) emitExtracted(value T) {
	c.emit(activity.BuildCowExtractedEvent, activity.CowEventInput{
		OldValue: value,
	})
}

func (c *Cow[T]) emitReleased() {
	c.emit(activity.BuildCowReleasedEvent, activity.CowEventInput{})
}

func (c *Cow[T]) emit(build func(activity.CowEventInput) activity.Event, input activity.CowEventInput) {
	if !c.cfg.activityHooks.Enabled() {
		return
	}
	input.ContainerID = c.ident()
	input.State = c.state.String()
	if input.Channel == "" {
		input.Channel = c.cfg.channel
	}
	_ = c.cfg.activityHooks.Notify(context.Background(), build(input))
}
