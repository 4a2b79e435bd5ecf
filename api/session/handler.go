// Package session exposes the session resolution engine over HTTP.
//
//	POST /v1/sessions/resolve  decide (and score) one session
//	GET  /v1/decisions         query the decision log
//	GET  /v1/catalog           list catalog records
//	GET  /v1/catalog/match     resolve ?brand=&model= against the catalog
//	GET  /healthz              liveness
package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/kilianp07/evsession/core/catalog"
	"github.com/kilianp07/evsession/core/decisionlog"
	"github.com/kilianp07/evsession/core/extract"
	"github.com/kilianp07/evsession/core/logger"
	"github.com/kilianp07/evsession/core/model"
	"github.com/kilianp07/evsession/core/normalize"
	"github.com/kilianp07/evsession/core/scoring"
	"github.com/kilianp07/evsession/core/session"
)

// maxBodyBytes bounds resolve request bodies.
const maxBodyBytes = 1 << 20

// Deps are the collaborators of the API. Store and Publish are optional.
type Deps struct {
	Engine  *session.Engine
	Scorer  scoring.Scorer
	Catalog catalog.Provider
	Store   decisionlog.Store
	// Publish receives every decision record, typically a bus.
	Publish func(decisionlog.Record)
	// Token enables bearer authentication on every route but /healthz.
	Token  string
	Logger logger.Logger
	Now    func() time.Time
}

// ResolveRequest is the body of POST /v1/sessions/resolve. Fields win over
// values found in Text.
type ResolveRequest struct {
	Text   string         `json:"text,omitempty"`
	Fields extract.Fields `json:"fields,omitempty"`
}

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	// Record is set when a decision was reached before the failure.
	Record *decisionlog.Record `json:"record,omitempty"`
}

type handler struct {
	Deps
}

// NewHandler returns the API router.
func NewHandler(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = logger.NopLogger{}
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &handler{Deps: d}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.Handle("POST /v1/sessions/resolve", h.auth(http.HandlerFunc(h.resolve)))
	mux.Handle("GET /v1/decisions", h.auth(http.HandlerFunc(h.decisions)))
	mux.Handle("GET /v1/catalog", h.auth(http.HandlerFunc(h.catalog)))
	mux.Handle("GET /v1/catalog/match", h.auth(http.HandlerFunc(h.match)))
	return mux
}

// auth requires an Authorization header with "Bearer <token>" when a token
// is configured.
func (h *handler) auth(next http.Handler) http.Handler {
	if h.Token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+h.Token {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	n := 0
	if h.Catalog != nil {
		n = h.Catalog.Snapshot().Len()
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "catalog_records": n})
}

func (h *handler) resolve(w http.ResponseWriter, r *http.Request) {
	var req ResolveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid body: " + err.Error()})
		return
	}
	fields := req.Fields
	if req.Text != "" {
		fields = extract.Merge(extract.FromText(req.Text), req.Fields)
	}
	q := extract.ToQuery(fields)

	reply, err := h.Engine.Run(r.Context(), q, h.Scorer)
	rec := decisionlog.NewRecord(q, reply, err, h.Now().UTC())
	h.record(r, rec)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, scoring.ErrScoring) {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, ErrorResponse{Error: err.Error(), Record: &rec})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) record(r *http.Request, rec decisionlog.Record) {
	if h.Store != nil {
		if err := decisionlog.AppendDetached(r.Context(), h.Store, rec); err != nil {
			h.Logger.Errorf("append decision %s: %v", rec.ID, err)
		}
	}
	if h.Publish != nil {
		h.Publish(rec)
	}
}

func (h *handler) decisions(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: decisionlog.ErrDisabled.Error()})
		return
	}
	q, err := parseLogQuery(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	records, err := h.Store.Query(r.Context(), q)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}
	if records == nil {
		records = []decisionlog.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func parseLogQuery(r *http.Request) (decisionlog.LogQuery, error) {
	v := r.URL.Query()
	q := decisionlog.LogQuery{
		Outcome: model.OutcomeKind(v.Get("outcome")),
		Brand:   v.Get("brand"),
	}
	if s := v.Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, errors.New("start: expected RFC3339 time")
		}
		q.Start = t
	}
	if s := v.Get("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return q, errors.New("end: expected RFC3339 time")
		}
		q.End = t
	}
	if s := v.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, errors.New("limit: expected a non-negative integer")
		}
		q.Limit = n
	}
	switch q.Outcome {
	case "", model.KindAskMissing, model.KindPredict:
	default:
		return q, errors.New("outcome: expected ask_missing or predict")
	}
	return q, nil
}

func (h *handler) catalog(w http.ResponseWriter, r *http.Request) {
	records := []model.VehicleRecord{}
	if h.Catalog != nil {
		if cat := h.Catalog.Snapshot(); cat != nil {
			records = append(records, cat.Records()...)
		}
	}
	if brand := r.URL.Query().Get("brand"); brand != "" {
		records = filterBrand(records, brand)
	}
	writeJSON(w, http.StatusOK, records)
}

func (h *handler) match(w http.ResponseWriter, r *http.Request) {
	q := model.VehicleQuery{Brand: r.URL.Query().Get("brand"), Model: r.URL.Query().Get("model")}
	if q.Empty() {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "brand and model are required"})
		return
	}
	m, ok := h.Engine.Match(q)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: "no catalog match"})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func filterBrand(records []model.VehicleRecord, brand string) []model.VehicleRecord {
	want := normalize.Normalize(brand)
	out := records[:0]
	for _, rec := range records {
		if normalize.Normalize(rec.Brand) == want {
			out = append(out, rec)
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
