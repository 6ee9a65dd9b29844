package activity

import (
	"strings"
	"time"
)

// StoreEventInput describes one store commit.
type StoreEventInput struct {
	// ObjectType names the store family, e.g. ObjectSession.
	ObjectType string
	// Key is the persistence key; it doubles as the object ID.
	Key      string
	Op       string
	ActorID  string
	UserID   string
	Channel  string
	Metadata map[string]any
	// Sequence is the store's commit counter after the mutation.
	Sequence   uint64
	OccurredAt time.Time
}

// BuildStoreEvent constructs the event for one committed store mutation.
// The verb is "<object type>.<op>", e.g. "session.login".
func BuildStoreEvent(input StoreEventInput) Event {
	objectType := strings.ToLower(strings.TrimSpace(input.ObjectType))
	if objectType == "" {
		objectType = ObjectStore
	}
	op := strings.ToLower(strings.TrimSpace(input.Op))
	if op == "" {
		op = "updated"
	}
	objectID := strings.TrimSpace(input.Key)
	if objectID == "" {
		objectID = objectType
	}

	return Event{
		Verb:       objectType + "." + op,
		ActorID:    strings.TrimSpace(input.ActorID),
		UserID:     strings.TrimSpace(input.UserID),
		ObjectType: objectType,
		ObjectID:   objectID,
		Channel:    strings.TrimSpace(input.Channel),
		Sequence:   input.Sequence,
		Metadata:   cloneMap(input.Metadata),
		OccurredAt: input.OccurredAt,
	}
}
