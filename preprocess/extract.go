package preprocess

import (
	"strings"

	"github.com/goccy/go-json"

	"github.com/prsense/ghingest/types"
)

// eventPayload is the slice of the upstream payload the pipeline reads:
// the text-bearing bodies and the author_association of whichever
// sub-object carries one.
type eventPayload struct {
	Payload struct {
		PullRequest struct {
			Title             string `json:"title"`
			Body              string `json:"body"`
			AuthorAssociation string `json:"author_association"`
		} `json:"pull_request"`
		Comment struct {
			Body              string `json:"body"`
			AuthorAssociation string `json:"author_association"`
		} `json:"comment"`
		Review struct {
			Body              string `json:"body"`
			AuthorAssociation string `json:"author_association"`
		} `json:"review"`
		Issue struct {
			AuthorAssociation string `json:"author_association"`
		} `json:"issue"`
	} `json:"payload"`
}

func parsePayload(event *types.RawEvent) (*eventPayload, error) {
	var p eventPayload
	if err := json.Unmarshal(event.Payload, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ExtractText derives the single text string for an event based on its
// kind: comment body, review body, or title plus body for a pull
// request. The second return is false when no usable text exists.
func ExtractText(event *types.RawEvent) (string, bool) {
	p, err := parsePayload(event)
	if err != nil {
		return "", false
	}

	var text string
	switch event.Kind {
	case types.KindPullRequest:
		pr := p.Payload.PullRequest
		text = pr.Title
		if pr.Body != "" {
			text = pr.Title + "\n" + pr.Body
		}
	case types.KindPRReviewComment, types.KindIssueComment:
		text = p.Payload.Comment.Body
	case types.KindPullRequestReview:
		text = p.Payload.Review.Body
	default:
		return "", false
	}

	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

// AuthorRole extracts the author's association with the repository from
// the payload, checking the comment, review, pull request and issue
// sub-objects in that order. Returns "" when none carries one.
func AuthorRole(event *types.RawEvent) string {
	p, err := parsePayload(event)
	if err != nil {
		return ""
	}
	for _, role := range []string{
		p.Payload.Comment.AuthorAssociation,
		p.Payload.Review.AuthorAssociation,
		p.Payload.PullRequest.AuthorAssociation,
		p.Payload.Issue.AuthorAssociation,
	} {
		if role != "" {
			return role
		}
	}
	return ""
}
