package bitbucket

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/atlet99/git-activity-hook/internal/errors"
)

const (
	// Headers set by Bitbucket on every delivery
	headerEventKey  = "X-Event-Key"
	headerRequestID = "X-Request-Id"

	maxBodyBytes = 5 << 20
)

// Handler handles Bitbucket webhook requests
type Handler struct {
	interpreter *Interpreter
	logger      *slog.Logger
}

// NewHandler creates a new Bitbucket webhook handler
func NewHandler(interpreter *Interpreter, logger *slog.Logger) *Handler {
	return &Handler{
		interpreter: interpreter,
		logger:      logger,
	}
}

// HandleWebhook handles incoming Bitbucket webhook requests
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := r.Header.Get(headerRequestID)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set(headerRequestID, requestID)

	// Read request body
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.logger.Error("Failed to read request body", "error", err, "deliveryID", requestID)
		apperrors.WriteHTTP(w, apperrors.Wrap(apperrors.ErrCodeInvalidRequest,
			"failed to read request body", err).WithRequestID(requestID))
		return
	}
	if err := r.Body.Close(); err != nil {
		h.logger.Warn("Failed to close request body", "error", err)
	}

	if !json.Valid(body) {
		h.logger.Warn("Rejected webhook with invalid JSON", "deliveryID", requestID)
		apperrors.WriteHTTP(w, apperrors.New(apperrors.ErrCodeInvalidRequest,
			"request body is not valid JSON").WithRequestID(requestID))
		return
	}

	delivery := Delivery{
		ID:       requestID,
		EventKey: eventKey(r, body),
		Body:     body,
	}

	summary, err := h.interpreter.Interpret(r.Context(), delivery)
	if err != nil {
		if se, ok := apperrors.As(err); ok {
			se.WithRequestID(requestID)
		}
		apperrors.WriteHTTP(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		h.logger.Error("Failed to write response", "error", err)
	}
}

// eventKey reads the event kind from the header, falling back to the
// eventKey field that Bitbucket also puts in the body
func eventKey(r *http.Request, body []byte) string {
	if key := r.Header.Get(headerEventKey); key != "" {
		return key
	}

	var probe struct {
		EventKey string `json:"eventKey"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return ""
	}
	return probe.EventKey
}
