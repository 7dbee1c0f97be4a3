package bitbucket

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "github.com/atlet99/git-activity-hook/internal/errors"
)

// Event keys sent in the X-Event-Key header
const (
	EventRefsChanged = "repo:refs_changed"
	EventPROpened    = "pr:opened"
	EventPRMerged    = "pr:merged"
	EventPRDeclined  = "pr:declined"
	EventPRDeleted   = "pr:deleted"
	EventPing        = "diagnostics:ping"
)

// pullRequestStatus maps pull request event keys to the status shown in notes
var pullRequestStatus = map[string]string{
	EventPROpened:   "open",
	EventPRMerged:   "merged",
	EventPRDeclined: "declined",
	EventPRDeleted:  "deleted",
}

// PullRequestStatus returns the status label of a pull request event key
func PullRequestStatus(eventKey string) (string, bool) {
	status, ok := pullRequestStatus[eventKey]
	return status, ok
}

// IsSupported reports whether the event key produces activity records
func IsSupported(eventKey string) bool {
	_, ok := pullRequestStatus[eventKey]
	return ok || eventKey == EventRefsChanged
}

// Link represents a single link entry
type Link struct {
	Href string `json:"href"`
	Name string `json:"name,omitempty"`
}

// Links holds the links of a repository or pull request
type Links struct {
	Self  []Link `json:"self"`
	Clone []Link `json:"clone,omitempty"`
}

// SelfHref returns the first self link, if any
func (l *Links) SelfHref() string {
	if l == nil || len(l.Self) == 0 {
		return ""
	}
	return l.Self[0].Href
}

// Project represents a Bitbucket project
type Project struct {
	ID   int64  `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

// Repository represents a Bitbucket repository
type Repository struct {
	ID      int64    `json:"id"`
	Slug    string   `json:"slug"`
	Name    string   `json:"name"`
	Project *Project `json:"project"`
	Links   *Links   `json:"links"`
}

// ProjectKey returns the key of the owning project
func (r *Repository) ProjectKey() string {
	if r == nil || r.Project == nil {
		return ""
	}
	return r.Project.Key
}

// ProjectName returns the name of the owning project
func (r *Repository) ProjectName() string {
	if r == nil || r.Project == nil {
		return ""
	}
	return r.Project.Name
}

// Actor represents the user who triggered the event
type Actor struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	EmailAddress string `json:"emailAddress"`
	DisplayName  string `json:"displayName"`
}

// Ref represents a branch or tag reference
type Ref struct {
	ID           string      `json:"id"`
	DisplayID    string      `json:"displayId"`
	Type         string      `json:"type"`
	LatestCommit string      `json:"latestCommit,omitempty"`
	Repository   *Repository `json:"repository"`
}

// Change represents one ref update inside a push
type Change struct {
	Ref      *Ref   `json:"ref"`
	RefID    string `json:"refId"`
	FromHash string `json:"fromHash"`
	ToHash   string `json:"toHash"`
	Type     string `json:"type"`
}

// PullRequest represents a Bitbucket pull request
type PullRequest struct {
	ID      *int64 `json:"id"`
	Version int    `json:"version"`
	Title   string `json:"title"`
	State   string `json:"state"`
	FromRef *Ref   `json:"fromRef"`
	ToRef   *Ref   `json:"toRef"`
	Links   *Links `json:"links"`
}

// Event is the decoded form of one delivery: *PushEvent or *PullRequestEvent
type Event interface {
	Key() string
}

// PushEvent is the repo:refs_changed payload
type PushEvent struct {
	EventKey   string      `json:"eventKey"`
	Date       string      `json:"date"`
	Actor      *Actor      `json:"actor"`
	Repository *Repository `json:"repository"`
	Changes    []Change    `json:"changes"`
}

// Key implements Event
func (e *PushEvent) Key() string { return e.EventKey }

// PullRequestEvent is the payload of the pr:* events
type PullRequestEvent struct {
	EventKey    string       `json:"eventKey"`
	Date        string       `json:"date"`
	Actor       *Actor       `json:"actor"`
	PullRequest *PullRequest `json:"pullRequest"`
	// Status is derived from the event key
	Status string `json:"-"`
}

// Key implements Event
func (e *PullRequestEvent) Key() string { return e.EventKey }

// ParseEvent decodes a delivery body into the variant selected by eventKey.
// It returns a nil Event for keys that produce no activity.
func ParseEvent(eventKey string, body []byte) (Event, error) {
	if !IsSupported(eventKey) {
		return nil, nil
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, apperrors.MalformedPayload(errors.New("payload must be a JSON object"))
	}

	if eventKey == EventRefsChanged {
		var event PushEvent
		if err := json.Unmarshal(trimmed, &event); err != nil {
			return nil, apperrors.MalformedPayload(fmt.Errorf("failed to unmarshal push event: %w", err))
		}
		event.EventKey = eventKey
		return &event, nil
	}

	var event PullRequestEvent
	if err := json.Unmarshal(trimmed, &event); err != nil {
		return nil, apperrors.MalformedPayload(fmt.Errorf("failed to unmarshal pull request event: %w", err))
	}
	event.EventKey = eventKey
	event.Status = pullRequestStatus[eventKey]
	return &event, nil
}
