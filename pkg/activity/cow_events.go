package activity

import "time"

// CowEventInput describes the common fields for container lifecycle events.
type CowEventInput struct {
	ContainerID string
	State       string
	From        string
	SnapshotID  string
	OldValue    any
	NewValue    any
	Channel     string
	Metadata    map[string]any
	OccurredAt  time.Time
}

// BuildCowCreatedEvent constructs a normalized event for container
// construction in any of the three states.
func BuildCowCreatedEvent(input CowEventInput) Event {
	return buildCowEvent("cow.created", "cow", input)
}

// BuildCowPromotedEvent constructs an event describing a copy-on-write
// promotion from Borrowed or Shared state to Owned.
func BuildCowPromotedEvent(input CowEventInput) Event {
	return buildCowEvent("cow.promoted", "cow", input)
}

// BuildCowMutatedEvent constructs an event emitted when a mutation guard is
// released.
func BuildCowMutatedEvent(input CowEventInput) Event {
	return buildCowEvent("cow.mutated", "cow", input)
}

// BuildCowExtractedEvent constructs an event for IntoInner extraction.
func BuildCowExtractedEvent(input CowEventInput) Event {
	return buildCowEvent("cow.extracted", "cow", input)
}

// BuildCowReleasedEvent constructs an event for the release of a unit of
// shared ownership.
func BuildCowReleasedEvent(input CowEventInput) Event {
	return buildCowEvent("cow.released", "cow", input)
}

func buildCowEvent(verb, objectType string, input CowEventInput) Event {
	metadata := cloneMap(input.Metadata)
	if input.From != "" {
		metadata = ensureMetadata(metadata)
		metadata["from_state"] = input.From
	}
	if input.SnapshotID != "" {
		metadata = ensureMetadata(metadata)
		metadata["snapshot_id"] = input.SnapshotID
	}
	if input.OldValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil {
		metadata = ensureMetadata(metadata)
		metadata["new_value"] = input.NewValue
	}
	return Event{
		Verb:        verb,
		ContainerID: input.ContainerID,
		ObjectType:  objectType,
		State:       input.State,
		Channel:     input.Channel,
		Metadata:    metadata,
		OccurredAt:  input.OccurredAt,
	}
}

func ensureMetadata(metadata map[string]any) map[string]any {
	if metadata == nil {
		return map[string]any{}
	}
	return metadata
}
