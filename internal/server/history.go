package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/atlet99/git-activity-hook/internal/activity"
	apperrors "github.com/atlet99/git-activity-hook/internal/errors"
)

// maxListLimit bounds the page size a caller may ask for
const maxListLimit = 200

// HistoryResponse is the body of GET /issues/{id}/git-history
type HistoryResponse struct {
	IssueID int64             `json:"issue_id"`
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
	Records []activity.Record `json:"records"`
}

// HistoryHandler serves the git activity of one issue, newest first
type HistoryHandler struct {
	store  activity.Store
	logger *slog.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(store activity.Store, logger *slog.Logger) *HistoryHandler {
	return &HistoryHandler{store: store, logger: logger}
}

// HandleList handles GET /issues/{id}/git-history
func (h *HistoryHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	issueID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || issueID <= 0 {
		apperrors.WriteHTTP(w, apperrors.New(apperrors.ErrCodeInvalidRequest,
			"issue id must be a positive integer").WithContext("id", r.PathValue("id")))
		return
	}

	opts, err := parseListOptions(r.URL.Query())
	if err != nil {
		apperrors.WriteHTTP(w, err)
		return
	}

	records, err := h.store.ListByIssue(r.Context(), issueID, opts)
	if err != nil {
		h.logger.Error("Failed to list git history", "issueID", issueID, "error", err)
		apperrors.WriteHTTP(w, apperrors.Wrap(apperrors.ErrCodeDatabaseError,
			"failed to list git history", err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(HistoryResponse{
		IssueID: issueID,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		Records: records,
	}); err != nil {
		h.logger.Error("Failed to write response", "error", err)
	}
}

func parseListOptions(q url.Values) (activity.ListOptions, error) {
	opts := activity.ListOptions{Limit: activity.DefaultListLimit}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxListLimit {
			return opts, apperrors.New(apperrors.ErrCodeInvalidRequest,
				"limit must be between 1 and "+strconv.Itoa(maxListLimit)).WithContext("limit", v)
		}
		opts.Limit = limit
	}

	if v := q.Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			return opts, apperrors.New(apperrors.ErrCodeInvalidRequest,
				"offset must be a non-negative integer").WithContext("offset", v)
		}
		opts.Offset = offset
	}

	return opts, nil
}
