package bitbucket

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/atlet99/git-activity-hook/internal/activity"
	"github.com/atlet99/git-activity-hook/internal/config"
	apperrors "github.com/atlet99/git-activity-hook/internal/errors"
	"github.com/atlet99/git-activity-hook/internal/monitoring"
	"github.com/atlet99/git-activity-hook/internal/note"
	"github.com/atlet99/git-activity-hook/internal/users"
)

const tracerName = "github.com/atlet99/git-activity-hook/internal/bitbucket"

// Record kinds used in metrics and logs
const (
	kindPush        = "push"
	kindPullRequest = "pull_request"
)

// unsupportedEventLabel keeps the event_key label bounded for unknown keys
const unsupportedEventLabel = "other"

// Delivery is one webhook call as received by the HTTP handler
type Delivery struct {
	ID       string
	EventKey string
	Body     []byte
}

// RecordFailure describes one activity record that could not be created
type RecordFailure struct {
	Ref    string `json:"ref"`
	Reason string `json:"reason"`
}

// Summary reports what a delivery produced
type Summary struct {
	DeliveryID string          `json:"delivery_id"`
	EventKey   string          `json:"event_key"`
	Status     string          `json:"status"`
	Attempted  int             `json:"attempted"`
	Succeeded  int             `json:"succeeded"`
	Failures   []RecordFailure `json:"failures"`
}

// Interpreter turns webhook deliveries into activity records
type Interpreter struct {
	parser   *Parser
	urls     *URLBuilder
	users    users.Directory
	store    activity.Store
	renderer note.Renderer
	logger   *slog.Logger
	metrics  *monitoring.PrometheusMetrics
	tracer   trace.Tracer
	now      func() time.Time
}

// NewInterpreter creates a new interpreter. dir may be nil, in which case
// records are never linked to a user.
func NewInterpreter(
	cfg *config.Config,
	store activity.Store,
	dir users.Directory,
	renderer note.Renderer,
	logger *slog.Logger,
) *Interpreter {
	return &Interpreter{
		parser:   NewParser(),
		urls:     NewURLBuilder(cfg),
		users:    dir,
		store:    store,
		renderer: renderer,
		logger:   logger,
		tracer:   otel.Tracer(tracerName),
		now:      time.Now,
	}
}

// SetMetrics sets the metrics collector
func (i *Interpreter) SetMetrics(metrics *monitoring.PrometheusMetrics) {
	i.metrics = metrics
}

// Interpret classifies a delivery and writes the records it describes.
// Per-record failures are reported in the summary; only malformed payloads
// and unexpected failures are returned as errors.
func (i *Interpreter) Interpret(ctx context.Context, d Delivery) (summary *Summary, err error) {
	ctx, span := i.tracer.Start(ctx, "bitbucket.interpret",
		trace.WithAttributes(
			attribute.String("event.key", d.EventKey),
			attribute.String("delivery.id", d.ID),
		))
	defer func() { monitoring.EndSpan(span, err) }()

	logger := i.logger.With("eventKey", d.EventKey, "deliveryID", d.ID)
	summary = &Summary{
		DeliveryID: d.ID,
		EventKey:   d.EventKey,
		Failures:   []RecordFailure{},
	}

	if d.EventKey == EventPing {
		logger.Info("Received ping event")
		summary.Status = monitoring.OutcomeIgnored
		i.metrics.RecordEvent(d.EventKey, summary.Status)
		return summary, nil
	}

	event, err := ParseEvent(d.EventKey, d.Body)
	if err != nil {
		logger.Error("Failed to parse webhook payload", "error", err)
		i.metrics.RecordEvent(d.EventKey, monitoring.OutcomeMalformed)
		return nil, err
	}

	switch e := event.(type) {
	case *PushEvent:
		err = i.processPush(ctx, logger, e, summary)
	case *PullRequestEvent:
		err = i.processPullRequest(ctx, logger, e, summary)
	default:
		logger.Warn("Unsupported event")
		summary.Status = monitoring.OutcomeUnsupported
		i.metrics.RecordEvent(unsupportedEventLabel, summary.Status)
		return summary, nil
	}

	if err != nil {
		logger.Error("Failed to process webhook event", "error", err)
		i.metrics.RecordEvent(d.EventKey, monitoring.OutcomeFailed)
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("records.attempted", summary.Attempted),
		attribute.Int("records.succeeded", summary.Succeeded),
	)
	i.metrics.RecordEvent(d.EventKey, summary.Status)
	return summary, nil
}

// processPush writes one record per changed ref, in payload order
func (i *Interpreter) processPush(ctx context.Context, logger *slog.Logger, e *PushEvent, s *Summary) error {
	push := NormalizePush(e)
	s.Status = monitoring.OutcomeProcessed
	if len(push.Changes) == 0 {
		logger.Info("No changes in push event")
		return nil
	}

	userID, err := i.resolveUser(ctx, push.Actor)
	if err != nil {
		return err
	}

	for _, change := range push.Changes {
		data := note.PushData{
			ActorName:   push.Actor.DisplayName,
			ProjectName: push.ProjectName,
			RepoName:    push.RepoName,
			Branch:      change.Branch,
			ChangeType:  change.ChangeType,
			FromHash:    change.FromRevision,
			ToHash:      change.ToRevision,
			FromURL:     i.urls.ConstructCommitURL(e.Repository, change.FromRevision),
			ToURL:       i.urls.ConstructCommitURL(e.Repository, change.ToRevision),
		}

		notes, err := i.renderer.Render(note.PushNote, data)
		if err != nil {
			return apperrors.Internal("failed to render push note", err)
		}

		rec := &activity.Record{
			IssueID:   i.issueID(change.Branch),
			UserID:    userID,
			Notes:     notes,
			CreatedOn: i.now(),
		}
		i.createRecord(ctx, logger, kindPush, change.Branch, rec, s)
	}
	return nil
}

// processPullRequest writes a single record for a pull request event
func (i *Interpreter) processPullRequest(ctx context.Context, logger *slog.Logger, e *PullRequestEvent, s *Summary) error {
	pr, ok := NormalizePullRequest(e)
	if !ok {
		logger.Debug("Pull request event without pull request")
		s.Status = monitoring.OutcomeIgnored
		return nil
	}
	s.Status = monitoring.OutcomeProcessed

	userID, err := i.resolveUser(ctx, NormalizeActor(e.Actor))
	if err != nil {
		return err
	}

	data := note.PullRequestData{
		Status:      e.Status,
		ActorName:   NormalizeActor(e.Actor).DisplayName,
		ProjectName: pr.ProjectName,
		RepoName:    pr.RepoName,
		FromBranch:  pr.SourceBranch,
		ToBranch:    pr.TargetBranch,
		Title:       pr.Title,
		PRURL:       i.urls.ConstructPullRequestURL(e.PullRequest),
	}
	if pr.Number != nil {
		data.Number = *pr.Number
	}

	notes, err := i.renderer.Render(note.PullRequestNote, data)
	if err != nil {
		return apperrors.Internal("failed to render pull request note", err)
	}

	rec := &activity.Record{
		IssueID:   i.issueID(pr.SourceBranch, pr.Title),
		UserID:    userID,
		Notes:     notes,
		CreatedOn: i.now(),
	}
	i.createRecord(ctx, logger.With("prNumber", data.Number, "status", e.Status),
		kindPullRequest, pr.SourceBranch, rec, s)
	return nil
}

// createRecord writes rec and accounts for the outcome without failing the delivery
func (i *Interpreter) createRecord(ctx context.Context, logger *slog.Logger, kind, ref string, rec *activity.Record, s *Summary) {
	ctx, span := i.tracer.Start(ctx, "activity.create",
		trace.WithAttributes(
			attribute.String("record.kind", kind),
			attribute.String("record.ref", ref),
		))

	s.Attempted++
	id, err := i.store.Create(ctx, rec)
	monitoring.EndSpan(span, err)

	label := "push"
	if kind == kindPullRequest {
		label = "pull request"
	}

	if err != nil {
		logger.Error("Failed to create git history for "+label,
			"branch", ref,
			"issueID", rec.IssueID,
			"error", err)
		s.Failures = append(s.Failures, RecordFailure{Ref: ref, Reason: err.Error()})
		i.metrics.RecordActivity(kind, monitoring.ResultFailed)
		return
	}

	s.Succeeded++
	logger.Info("Created git history for "+label,
		"branch", ref,
		"issueID", rec.IssueID,
		"recordID", id)
	i.metrics.RecordActivity(kind, monitoring.ResultCreated)
}

// resolveUser maps the actor email to a user id. A missing user is not an error.
func (i *Interpreter) resolveUser(ctx context.Context, a NormalizedActor) (*int64, error) {
	if i.users == nil || a.Email == "" {
		return nil, nil
	}

	u, err := i.users.FindByEmail(ctx, a.Email)
	switch {
	case errors.Is(err, users.ErrNotFound):
		i.logger.Debug("No user for actor email", "email", a.Email)
		return nil, nil
	case err != nil:
		return nil, apperrors.Internal("failed to resolve actor", err)
	}

	id := u.ID
	return &id, nil
}

// issueID returns the first issue reference found in texts, or nil
func (i *Interpreter) issueID(texts ...string) *int64 {
	id, ok := i.parser.ExtractFirstIssueID(texts...)
	if !ok {
		return nil
	}
	return &id
}
