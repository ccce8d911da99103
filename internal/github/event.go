package github

import (
	"encoding/json"
	"errors"
	"fmt"

	gh "github.com/google/go-github/v71/github"
)

// ErrIncomplete is returned for payloads lacking an action or a repository.
var ErrIncomplete = errors.New("incomplete payload")

type Kind int

const (
	KindUnknown Kind = iota
	KindCommentCreated
	KindPullRequestOpened
	KindPullRequestClosed
	KindPullRequestReopened
)

func (k Kind) String() string {
	switch k {
	case KindCommentCreated:
		return "comment_created"
	case KindPullRequestOpened:
		return "pull_request_opened"
	case KindPullRequestClosed:
		return "pull_request_closed"
	case KindPullRequestReopened:
		return "pull_request_reopened"
	default:
		return "unknown"
	}
}

var actionKinds = map[string]Kind{
	"created":  KindCommentCreated,
	"opened":   KindPullRequestOpened,
	"closed":   KindPullRequestClosed,
	"reopened": KindPullRequestReopened,
}

// KindOf maps a webhook action to the event kind.
func KindOf(action string) Kind {
	return actionKinds[action]
}

type CommentEvent struct {
	Author     string
	Body       string
	URL        string
	Sender     string
	IssueTitle string
}

type PullRequestEvent struct {
	Title  string
	Body   string
	Author string
	URL    string
	Merged bool
}

// Event is one inbound notification. Comment and PullRequest are set only
// when the payload carried them.
type Event struct {
	Kind        Kind
	Action      string
	Repository  string
	Comment     *CommentEvent
	PullRequest *PullRequestEvent
	Raw         []byte
}

// ParseEvent decodes a webhook body with the go-github event types:
// IssueCommentEvent for "created", PullRequestEvent otherwise. Payloads
// without an action or a repository name fail with ErrIncomplete.
func ParseEvent(body []byte) (Event, error) {
	var pr gh.PullRequestEvent
	if err := json.Unmarshal(body, &pr); err != nil {
		return Event{}, fmt.Errorf("decode payload: %w", err)
	}
	if pr.GetAction() == "" {
		return Event{}, fmt.Errorf("%w: no action", ErrIncomplete)
	}
	if pr.GetRepo().GetName() == "" {
		return Event{}, fmt.Errorf("%w: no repository", ErrIncomplete)
	}

	ev := Event{
		Kind:       KindOf(pr.GetAction()),
		Action:     pr.GetAction(),
		Repository: pr.GetRepo().GetName(),
		Raw:        body,
	}

	if ev.Kind == KindCommentCreated {
		var ic gh.IssueCommentEvent
		if err := json.Unmarshal(body, &ic); err != nil {
			return Event{}, fmt.Errorf("decode issue_comment payload: %w", err)
		}
		if ic.Comment != nil {
			ev.Comment = &CommentEvent{
				Author:     ic.GetComment().GetUser().GetLogin(),
				Body:       ic.GetComment().GetBody(),
				URL:        ic.GetComment().GetHTMLURL(),
				Sender:     ic.GetSender().GetLogin(),
				IssueTitle: ic.GetIssue().GetTitle(),
			}
		}
		return ev, nil
	}

	if p := pr.GetPullRequest(); p != nil {
		ev.PullRequest = &PullRequestEvent{
			Title:  p.GetTitle(),
			Body:   p.GetBody(),
			Author: p.GetUser().GetLogin(),
			URL:    p.GetHTMLURL(),
			Merged: p.GetMerged(),
		}
	}

	return ev, nil
}
