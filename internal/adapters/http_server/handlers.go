package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"villa_dnft/internal/app"
	"villa_dnft/internal/domain"
)

type Handlers struct {
	C        *app.CommandService
	R        *app.RefreshService
	Accounts domain.AccountProvider

	validate *validator.Validate
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`

	// extension members set when a submission was logged before it failed
	EventID string `json:"event_id,omitempty"`
	Digest  string `json:"digest,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	if h.validate == nil {
		h.validate = newValidator()
	}
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/v1/villas", func(r chi.Router) {
		r.Get("/", h.listVillas)
		r.Post("/", h.mint)
		r.Post("/{id}/inspection", h.inspection)
		r.Post("/{id}/maintenance", h.maintenance)
		r.Post("/{id}/occupancy", h.occupancy)
		r.Get("/{id}/events", h.listEvents)
	})
}

/********** request DTOs **********/

var suiAddress = regexp.MustCompile(`^0x[0-9a-fA-F]{1,64}$`)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("sui_address", func(fl validator.FieldLevel) bool {
		return suiAddress.MatchString(fl.Field().String())
	})
	return v
}

// Score range is left to the builder so it reports ErrOutOfRange.
type mintRequest struct {
	Name           string `json:"name" validate:"required,max=128"`
	Description    string `json:"description" validate:"max=2048"`
	ImageURL       string `json:"image_url" validate:"max=512"`
	ConditionScore *int   `json:"condition_score" validate:"required"`
	Occupied       bool   `json:"occupied"`
	EvidenceURI    string `json:"evidence_uri" validate:"max=512"`
	GalleryURI     string `json:"gallery_uri" validate:"max=512"`
	Tags           string `json:"tags" validate:"max=1024"`
	Recipient      string `json:"recipient" validate:"omitempty,sui_address"`
}

type inspectionRequest struct {
	ConditionScore *int   `json:"condition_score" validate:"required"`
	EvidenceURI    string `json:"evidence_uri" validate:"max=512"`
	Tags           string `json:"tags" validate:"max=1024"`
}

type maintenanceRequest struct {
	Active        *bool  `json:"active" validate:"required"`
	RenovatedAtMs string `json:"renovated_at_ms"`
}

type occupancyRequest struct {
	Occupied *bool `json:"occupied" validate:"required"`
}

/********** response views **********/

type villaView struct {
	domain.Villa
	ConditionLabel string `json:"condition_label"`
}

type villasResponse struct {
	Owner     string      `json:"owner"`
	Villas    []villaView `json:"villas"`
	Stale     bool        `json:"stale"`
	FetchedAt string      `json:"fetched_at,omitempty"`
}

func toVillasResponse(s app.Snapshot) villasResponse {
	out := villasResponse{Owner: s.Owner, Stale: s.Stale, Villas: make([]villaView, 0, len(s.Villas))}
	if !s.FetchedAt.IsZero() {
		out.FetchedAt = s.FetchedAt.Format(time.RFC3339)
	}
	for _, v := range s.Villas {
		out.Villas = append(out.Villas, villaView{Villa: v, ConditionLabel: domain.ConditionLabel(v.ConditionScore)})
	}
	return out
}

/********** helpers **********/

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	encodeProblem(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func encodeProblem(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// writeDomainError maps workflow errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOutOfRange):
		writeProblem(w, http.StatusUnprocessableEntity, "Out of range", err.Error())
	case errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrInvalidIdentity):
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid input", err.Error())
	case errors.Is(err, domain.ErrMissingAuthorization), errors.Is(err, domain.ErrNotConfigured):
		writeProblem(w, http.StatusPreconditionFailed, "Not configured", err.Error())
	case errors.Is(err, domain.ErrNoAccount):
		writeProblem(w, http.StatusUnauthorized, "No account", "connect a wallet or pass a recipient")
	case errors.Is(err, domain.ErrExecutionFailed):
		writeProblem(w, http.StatusBadGateway, "Execution failed", err.Error())
	default:
		log.Error().Err(err).Msg("unmapped error")
		writeProblem(w, http.StatusInternalServerError, "Internal error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write body")
	}
}

// decode reads a JSON body into dst and validates it. It writes the 400 itself.
func (h *Handlers) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid body", err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeProblem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return false
	}
	return true
}

func (h *Handlers) owner(r *http.Request) string {
	if o := strings.TrimSpace(r.URL.Query().Get("owner")); o != "" {
		return o
	}
	if o := walletFrom(r.Context()); o != "" {
		return o
	}
	if h.Accounts == nil {
		return ""
	}
	addr, ok, err := h.Accounts.CurrentAccount(r.Context())
	if err != nil {
		log.Warn().Err(err).Msg("wallet account lookup failed")
		return ""
	}
	if !ok {
		return ""
	}
	return addr
}

/********** routes **********/

func (h *Handlers) listVillas(w http.ResponseWriter, r *http.Request) {
	owner := h.owner(r)

	var snap app.Snapshot
	if cached, _ := strconv.ParseBool(r.URL.Query().Get("cached")); cached {
		var ok bool
		if snap, ok = h.R.Cached(r.Context(), owner); !ok {
			snap = h.R.Refresh(r.Context(), owner)
		}
	} else {
		snap = h.R.Refresh(r.Context(), owner)
	}
	if snap.Owner == "" {
		snap.Owner = owner
	}

	if snap.Stale {
		w.Header().Set(StaleHeader, "true")
	}
	writeCached(w, r, toVillasResponse(snap))
}

func (h *Handlers) mint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.run(w, r, app.MintVilla{
		Name:           req.Name,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		ConditionScore: *req.ConditionScore,
		Occupied:       req.Occupied,
		EvidenceURI:    req.EvidenceURI,
		GalleryURI:     req.GalleryURI,
		Tags:           req.Tags,
		Recipient:      req.Recipient,
	})
}

func (h *Handlers) inspection(w http.ResponseWriter, r *http.Request) {
	var req inspectionRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.run(w, r, app.RecordInspection{
		VillaID:        chi.URLParam(r, "id"),
		ConditionScore: *req.ConditionScore,
		EvidenceURI:    req.EvidenceURI,
		Tags:           req.Tags,
	})
}

func (h *Handlers) maintenance(w http.ResponseWriter, r *http.Request) {
	var req maintenanceRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.run(w, r, app.SetMaintenance{
		VillaID:       chi.URLParam(r, "id"),
		Active:        *req.Active,
		RenovatedAtMs: req.RenovatedAtMs,
	})
}

func (h *Handlers) occupancy(w http.ResponseWriter, r *http.Request) {
	var req occupancyRequest
	if !h.decode(w, r, &req) {
		return
	}
	h.run(w, r, app.SetOccupancy{VillaID: chi.URLParam(r, "id"), Occupied: *req.Occupied})
}

// run previews op on ?dry_run=true, otherwise submits it.
func (h *Handlers) run(w http.ResponseWriter, r *http.Request, op app.Operation) {
	sender := walletFrom(r.Context())

	if dry, _ := strconv.ParseBool(r.URL.Query().Get("dry_run")); dry {
		call, err := h.C.Preview(r.Context(), op, sender)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, call)
		return
	}

	rec, err := h.C.Submit(r.Context(), op, sender)
	if err != nil {
		if errors.Is(err, domain.ErrExecutionFailed) && rec.EventID != "" {
			encodeProblem(w, problem{
				Type:    "about:blank",
				Title:   "Execution failed",
				Status:  http.StatusBadGateway,
				Detail:  err.Error(),
				EventID: rec.EventID,
				Digest:  rec.Digest,
			})
			return
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, rec)
}

func (h *Handlers) listEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}

	out, err := h.C.Events(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidIdentity) {
			writeDomainError(w, err)
			return
		}
		log.Error().Err(err).Msg("list events failed")
		writeProblem(w, http.StatusServiceUnavailable, "Unavailable", "event log unavailable")
		return
	}
	writeCached(w, r, map[string]any{"villa_id": chi.URLParam(r, "id"), "events": out})
}
