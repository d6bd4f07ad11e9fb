package review

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"jobmate/discovery/internal/logging"
)

// Routes:
//
//	GET  /jobs                 → list visible jobs (?hidden=true includes hidden)
//	GET  /jobs/{id}            → one job
//	POST /jobs/{id}/{action}   → hide|apply|interview|reject|star|notes|resume
//
// Flag actions accept an optional {"value": false} body to clear the flag;
// notes and resume take {"text": "..."}.

// Handler exposes Service over HTTP.
type Handler struct {
	svc *Service
	log zerolog.Logger
}

// NewHandler returns a configured Handler.
func NewHandler(svc *Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: logging.Component(log, "review-http")}
}

// RegisterRoutes mounts all review routes on mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /jobs", h.listJobs)
	mux.HandleFunc("GET /jobs/{id}", h.getJob)
	mux.HandleFunc("POST /jobs/{id}/{action}", h.jobAction)
}

type actionBody struct {
	Value *bool  `json:"value"`
	Text  string `json:"text"`
}

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	includeHidden, _ := strconv.ParseBool(r.URL.Query().Get("hidden"))
	jobs, err := h.svc.List(r.Context(), includeHidden)
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonOK(w, jobs)
}

func (h *Handler) getJob(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	job, err := h.svc.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	jsonOK(w, job)
}

func (h *Handler) jobAction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	action, err := ParseAction(r.PathValue("action"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}

	var body actionBody
	if r.ContentLength != 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxTextLen+1024)
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			jsonError(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
	}

	ctx := r.Context()
	switch {
	case action == ActionStar:
		on, err := h.svc.ToggleStar(ctx, id)
		if err != nil {
			h.fail(w, err)
			return
		}
		jsonOK(w, map[string]any{"id": id, "starred": on})
	case action == ActionNotes:
		h.respond(w)(h.svc.SetNotes(ctx, id, body.Text))
	case action == ActionResume:
		h.respond(w)(h.svc.SetTailoredResume(ctx, id, body.Text))
	default:
		flag, _ := FlagFor(action)
		value := true
		if body.Value != nil {
			value = *body.Value
		}
		h.respond(w)(h.svc.SetFlag(ctx, id, flag, value))
	}
}

func (h *Handler) respond(w http.ResponseWriter) func(v any, err error) {
	return func(v any, err error) {
		if err != nil {
			h.fail(w, err)
			return
		}
		jsonOK(w, v)
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	var ve *ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		jsonError(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &ve):
		jsonError(w, ve.Msg, http.StatusBadRequest)
	default:
		h.log.Error().Err(err).Msg("review request failed")
		jsonError(w, "database error", http.StatusInternalServerError)
	}
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, "invalid job id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func jsonOK(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
