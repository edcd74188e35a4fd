package web

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/sells-group/crime-map/internal/app"
	"github.com/sells-group/crime-map/internal/codes"
	"github.com/sells-group/crime-map/internal/mapview"
	"github.com/sells-group/crime-map/internal/predict"
	"github.com/sells-group/crime-map/internal/session"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"variant": s.svc.Variant,
		"areas":   len(s.svc.Centroids),
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	p := s.page(defaultForm(s.nowFunc(), s.svc.Variant, s.svc.Book), sessionFrom(r.Context()))
	s.render(w, http.StatusOK, p)
}

func (s *Server) handlePagePredict(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	req, errs := parseForm(r)
	if req == nil {
		p := s.page(defaultForm(s.nowFunc(), s.svc.Variant, s.svc.Book), sess)
		p.Error = "invalid input"
		p.Errors = fieldStrings(errs)
		s.render(w, http.StatusBadRequest, p)
		return
	}
	errs = append(errs, req.Validate(s.svc.Variant, s.svc.Book)...)
	if len(errs) > 0 {
		p := s.page(req.Form(), sess)
		p.Error = "invalid input"
		p.Errors = fieldStrings(errs)
		s.render(w, http.StatusBadRequest, p)
		return
	}

	q, err := req.Query()
	if err != nil {
		p := s.page(req.Form(), sess)
		p.Error = "invalid input"
		p.Errors = []string{"date: " + err.Error()}
		s.render(w, http.StatusBadRequest, p)
		return
	}

	out, err := s.svc.Predict(r.Context(), sess.ID, q)
	if err != nil {
		p := s.page(req.Form(), sess)
		p.Error = "prediction failed"
		s.render(w, statusFor(err), p)
		return
	}

	sess = s.reload(r, sess)
	p := s.page(req.Form(), sess)
	p.Outcome = &mapview.Outcome{Area: out.Area, Resolved: out.Resolved, Lat: out.Point.Lat, Lon: out.Point.Lon}
	s.render(w, http.StatusOK, p)
}

func (s *Server) handleAPIPredict(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	if errs := req.Validate(s.svc.Variant, s.svc.Book); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "validation failed", "fields": errs})
		return
	}
	q, err := req.Query()
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid date"})
		return
	}

	out, err := s.svc.Predict(r.Context(), sess.ID, q)
	if err != nil {
		writeJSON(w, statusFor(err), map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, predictResponse{Outcome: out, Session: sess.ID})
}

type predictResponse struct {
	Outcome *app.Outcome `json:"outcome"`
	Session string       `json:"session"`
}

type codesResponse struct {
	Crime    []codes.Option `json:"crime"`
	Weapon   []codes.Option `json:"weapon"`
	Premises []codes.Option `json:"premises"`
}

func (s *Server) handleCodes(w http.ResponseWriter, _ *http.Request) {
	book := s.svc.Book
	if book == nil {
		writeJSON(w, http.StatusOK, codesResponse{Crime: []codes.Option{}, Weapon: []codes.Option{}, Premises: []codes.Option{}})
		return
	}
	writeJSON(w, http.StatusOK, codesResponse{
		Crime:    book.Crime.Options(),
		Weapon:   book.WeaponOptions(),
		Premises: book.Premises.Options(),
	})
}

type centroidEntry struct {
	Area int     `json:"area"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

func (s *Server) handleCentroids(w http.ResponseWriter, _ *http.Request) {
	areas := s.svc.Centroids.Areas()
	out := make([]centroidEntry, 0, len(areas))
	for _, a := range areas {
		p, _ := s.svc.Centroids.Lookup(a)
		out = append(out, centroidEntry{Area: a, Lat: p.Lat, Lon: p.Lon})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := s.reload(r, sessionFrom(r.Context()))
	if sess.Results == nil {
		sess.Results = []session.Result{}
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleMarkers(w http.ResponseWriter, r *http.Request) {
	sess := s.reload(r, sessionFrom(r.Context()))
	b, err := s.svc.View(sess).GeoJSON()
	if err != nil {
		zap.L().Error("web: encode markers", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "encode markers"})
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b); err != nil {
		zap.L().Warn("web: write markers", zap.Error(err))
	}
}

// reload fetches the current copy of sess, falling back to sess when the
// store cannot return it.
func (s *Server) reload(r *http.Request, sess *session.Session) *session.Session {
	fresh, err := s.svc.Store.Get(r.Context(), sess.ID)
	if err != nil {
		zap.L().Warn("web: reload session", zap.String("session", sess.ID), zap.Error(err))
		return sess
	}
	return fresh
}

func (s *Server) page(form mapview.Form, sess *session.Session) mapview.Page {
	p := mapview.Page{
		Variant: s.svc.Variant,
		Form:    form,
		View:    s.svc.View(sess).WithZoom(s.zoom),
		TileURL: s.tileURL,
	}
	if b := s.svc.Book; b != nil && p.Labeled() {
		p.Crime = b.Crime.Options()
		p.Weapon = b.WeaponOptions()
		p.Premises = b.Premises.Options()
	}
	return p
}

func (s *Server) render(w http.ResponseWriter, status int, p mapview.Page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := mapview.Render(w, p); err != nil {
		zap.L().Error("web: render page", zap.Error(err))
	}
}

// statusFor maps a prediction failure onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, predict.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, predict.ErrModelRejected):
		return http.StatusUnprocessableEntity
	case errors.Is(err, predict.ErrBadResponse):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func fieldStrings(errs []FieldError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.String()
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		zap.L().Error("web: marshal response", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		zap.L().Warn("web: write response", zap.Error(err))
	}
}
