package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/callslot/callslot/libs/httpx"
	"github.com/callslot/callslot/services/availability-service/internal/availability"
	"github.com/callslot/callslot/services/availability-service/internal/metrics"
)

const AvailabilityPath = "/api/v1/users/{username}/availability"

var ErrMethodNotAllowed = errors.New("method not allowed")

type Computer interface {
	Compute(ctx context.Context, q availability.Query) (availability.Result, error)
}

type AvailabilityHandler struct {
	engine        Computer
	logger        *slog.Logger
	requireOffset bool
}

func NewAvailabilityHandler(engine Computer, logger *slog.Logger, requireOffset bool) *AvailabilityHandler {
	return &AvailabilityHandler{engine: engine, logger: logger, requireOffset: requireOffset}
}

func (h *AvailabilityHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc(AvailabilityPath, h.Get)
}

type errorResponse struct {
	Message string `json:"message"`
}

func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		h.fail(w, r, http.StatusMethodNotAllowed, ErrMethodNotAllowed)
		return
	}

	params := r.URL.Query()
	q, err := availability.ParseQuery(r.PathValue("username"), params.Get("date"), params.Get("timezoneOffset"), h.requireOffset)
	if err != nil {
		h.fail(w, r, http.StatusBadRequest, err)
		return
	}

	res, err := h.engine.Compute(r.Context(), q)
	if err != nil {
		h.fail(w, r, statusFor(err), err)
		return
	}

	body, err := json.Marshal(res)
	if err != nil {
		h.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	metrics.IncRequest("http", "ok")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, availability.ErrMissingParameter),
		errors.Is(err, availability.ErrInvalidDate),
		errors.Is(err, availability.ErrInvalidParameter),
		errors.Is(err, availability.ErrUserNotFound):
		return http.StatusBadRequest
	case errors.Is(err, availability.ErrUpstreamLookup):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		// Client closed the request.
		return 499
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage keeps upstream detail out of responses.
func clientMessage(status int, err error) string {
	var pe *availability.ParamError
	switch {
	case errors.As(err, &pe):
		return pe.Message
	case errors.Is(err, availability.ErrUserNotFound), errors.Is(err, ErrMethodNotAllowed):
		return err.Error()
	case status == http.StatusServiceUnavailable:
		return "availability temporarily unavailable"
	case status == http.StatusGatewayTimeout:
		return "availability lookup timed out"
	default:
		return "internal error"
	}
}

func (h *AvailabilityHandler) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	outcome := availability.Outcome(err)
	if errors.Is(err, ErrMethodNotAllowed) {
		outcome = "method_not_allowed"
	}
	metrics.IncRequest("http", outcome)

	if status >= http.StatusInternalServerError {
		h.logger.Error("availability request failed",
			"err", err,
			"status", status,
			"request_id", httpx.RequestIDFromContext(r.Context()),
			"user", r.PathValue("username"),
			"date", r.URL.Query().Get("date"),
		)
	}

	body, _ := json.Marshal(errorResponse{Message: clientMessage(status, err)})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
