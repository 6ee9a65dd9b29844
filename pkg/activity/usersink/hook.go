// Package usersink forwards store activity to a go-users ActivitySink so
// sign-ins, theme changes and onboarding progress land in the same audit
// trail as the rest of the account's activity.
package usersink

import (
	"context"
	"strings"

	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/goliatone/go-wedding-state/pkg/activity"
	"github.com/google/uuid"
)

// Hook adapts activity events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
	// ObjectTypes restricts forwarding to the listed store families. Empty
	// forwards everything.
	ObjectTypes []string
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
// Events without a parseable actor or user keep uuid.Nil in those fields.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if normalized.Validate() != nil {
		return nil
	}
	if !activity.MatchesObjectType(h.ObjectTypes, normalized.ObjectType) {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	userID := parseUUID(normalized.UserID)
	actorID := parseUUID(normalized.ActorID)
	if actorID == uuid.Nil {
		actorID = userID
	}

	record := usertypes.ActivityRecord{
		ActorID:    actorID,
		UserID:     userID,
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		Data:       cloneMap(normalized.Metadata),
		OccurredAt: normalized.OccurredAt,
	}
	if record.Data == nil {
		record.Data = map[string]any{}
	}
	record.Data["op"] = normalized.Op()
	if normalized.Sequence > 0 {
		record.Data["sequence"] = normalized.Sequence
	}

	return h.Sink.Log(ctx, record)
}

func parseUUID(input string) uuid.UUID {
	value := strings.TrimSpace(input)
	id, err := uuid.Parse(value)
	if err != nil {
		return uuid.Nil
	}
	return id
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
