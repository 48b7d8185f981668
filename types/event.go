package types

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

// EventKind is the upstream event category of a RawEvent.
type EventKind string

const (
	KindPullRequest       EventKind = "PullRequestEvent"
	KindPullRequestReview EventKind = "PullRequestReviewEvent"
	KindPRReviewComment   EventKind = "PullRequestReviewCommentEvent"
	KindIssueComment      EventKind = "IssueCommentEvent"
)

// DefaultEventKinds are the kinds carrying review/comment text.
func DefaultEventKinds() []EventKind {
	return []EventKind{KindPullRequest, KindPullRequestReview, KindPRReviewComment, KindIssueComment}
}

// RawEvent is one platform activity record as ingested.
// Id is globally unique and stable across re-fetches; it is the sole
// deduplication key. Payload holds the full upstream record verbatim.
type RawEvent struct {
	Id        string
	Entity    string
	Kind      EventKind
	Actor     string
	Timestamp time.Time
	Payload   json.RawMessage
}

// eventEnvelope is the minimal shape parsed out of an upstream JSON line.
type eventEnvelope struct {
	Id    string `json:"id"`
	Type  string `json:"type"`
	Actor struct {
		Login string `json:"login"`
	} `json:"actor"`
	Repo struct {
		Name string `json:"name"`
	} `json:"repo"`
	CreatedAt time.Time `json:"created_at"`
}

// ParseRawEvent parses one upstream NDJSON line into a RawEvent.
// The full line is retained as the payload.
func ParseRawEvent(line []byte) (*RawEvent, error) {
	var env eventEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}
	if env.Id == "" {
		return nil, fmt.Errorf("event has no id")
	}

	payload := make(json.RawMessage, len(line))
	copy(payload, line)

	return &RawEvent{
		Id:        env.Id,
		Entity:    env.Repo.Name,
		Kind:      EventKind(env.Type),
		Actor:     env.Actor.Login,
		Timestamp: env.CreatedAt,
		Payload:   payload,
	}, nil
}
