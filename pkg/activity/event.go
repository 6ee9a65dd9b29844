package activity

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Store families that report activity.
const (
	ObjectSession = "session"
	ObjectTheme   = "theme"
	ObjectDraft   = "draft"

	// ObjectStore is used for stores registered without an object type.
	ObjectStore = "store"
)

// ErrInvalidEvent is returned for events that do not describe a store commit.
var ErrInvalidEvent = errors.New("activity: invalid event")

// Event is one committed store mutation. Verb is "<object type>.<op>" and
// ObjectID is the persistence key of the store that changed.
type Event struct {
	Verb       string
	ActorID    string
	UserID     string
	ObjectType string
	ObjectID   string
	Channel    string
	// Sequence is the store's commit counter after the mutation.
	Sequence   uint64
	Metadata   map[string]any
	OccurredAt time.Time
}

// Op returns the operation half of the verb, "login" for "session.login".
func (e Event) Op() string {
	_, op, ok := strings.Cut(e.Verb, ".")
	if !ok {
		return ""
	}
	return op
}

// Validate checks that the event names an object and that its verb is
// scoped to that object type.
func (e Event) Validate() error {
	if !validIdent(e.ObjectType) {
		return fmt.Errorf("%w: object type %q", ErrInvalidEvent, e.ObjectType)
	}
	if e.ObjectID == "" {
		return fmt.Errorf("%w: %s has no object id", ErrInvalidEvent, e.ObjectType)
	}
	family, op, ok := strings.Cut(e.Verb, ".")
	if !ok || family != e.ObjectType || !validIdent(op) {
		return fmt.Errorf("%w: verb %q for object type %q", ErrInvalidEvent, e.Verb, e.ObjectType)
	}
	return nil
}

// NormalizeEvent trims identifiers, lowercases the verb and object type,
// clones metadata and stamps OccurredAt when unset.
func NormalizeEvent(event Event) Event {
	normalized := event
	normalized.Verb = strings.ToLower(strings.TrimSpace(event.Verb))
	normalized.ObjectType = strings.ToLower(strings.TrimSpace(event.ObjectType))
	normalized.ObjectID = strings.TrimSpace(event.ObjectID)
	normalized.ActorID = strings.TrimSpace(event.ActorID)
	normalized.UserID = strings.TrimSpace(event.UserID)
	normalized.Channel = strings.TrimSpace(event.Channel)
	normalized.Metadata = cloneMap(event.Metadata)
	if normalized.OccurredAt.IsZero() {
		normalized.OccurredAt = time.Now()
	}
	return normalized
}

// MatchesObjectType reports whether objectType is listed in allowed,
// ignoring case. An empty list allows every type.
func MatchesObjectType(allowed []string, objectType string) bool {
	if len(allowed) == 0 {
		return true
	}
	objectType = strings.TrimSpace(objectType)
	return slices.ContainsFunc(allowed, func(candidate string) bool {
		return strings.EqualFold(strings.TrimSpace(candidate), objectType)
	})
}

// validIdent accepts lower-case snake identifiers such as "set_mode".
func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case i > 0 && (r == '_' || (r >= '0' && r <= '9')):
		default:
			return false
		}
	}
	return true
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
