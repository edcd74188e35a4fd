// Package app ties the predictor, centroids and session store into the
// single interaction the web and CLI front ends expose.
package app

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crime-map/internal/codes"
	"github.com/sells-group/crime-map/internal/config"
	"github.com/sells-group/crime-map/internal/geo"
	"github.com/sells-group/crime-map/internal/mapview"
	"github.com/sells-group/crime-map/internal/predict"
	"github.com/sells-group/crime-map/internal/session"
)

// Outcome is the result of one prediction. Point is meaningful only when
// Resolved is true.
type Outcome struct {
	Area     int       `json:"area"`
	Point    geo.Point `json:"point"`
	Resolved bool      `json:"resolved"`
}

// Service holds the loaded dataset lookups and the collaborators of a
// prediction.
type Service struct {
	Predictor predict.Predictor
	Centroids geo.Centroids
	Book      *codes.Book
	Store     session.Store
	Variant   string
}

// New creates a Service.
func New(p predict.Predictor, centroids geo.Centroids, book *codes.Book, store session.Store, variant string) *Service {
	return &Service{
		Predictor: p,
		Centroids: centroids,
		Book:      book,
		Store:     store,
		Variant:   variant,
	}
}

// Predict asks the model for an area and resolves its centroid. A resolved
// outcome is appended to the session; an unresolved one is returned but not
// stored. Predictor errors are returned unchanged and nothing is stored.
func (s *Service) Predict(ctx context.Context, sessionID string, q predict.Query) (*Outcome, error) {
	pred, err := s.Predictor.Predict(ctx, q)
	if err != nil {
		zap.L().Warn("app: prediction failed", zap.String("session", sessionID), zap.Error(err))
		return nil, err
	}

	out := &Outcome{Area: pred.Label}
	p, ok := s.Centroids.Lookup(pred.Label)
	if !ok {
		zap.L().Info("app: predicted area has no centroid", zap.Int("area", pred.Label))
		return out, nil
	}
	out.Point = p
	out.Resolved = true

	r := session.Result{Area: pred.Label, Lat: p.Lat, Lon: p.Lon}
	if s.Variant == config.VariantLabeled {
		r.Codes = &session.Codes{Crime: q.CrimeCode, Weapon: q.WeaponCode, Premises: q.PremisesCode}
	}
	if err := s.Store.Append(ctx, sessionID, r); err != nil {
		return nil, eris.Wrap(err, "app: append result")
	}

	zap.L().Debug("app: prediction stored",
		zap.String("session", sessionID),
		zap.Int("area", pred.Label),
		zap.Float64("lat", p.Lat),
		zap.Float64("lon", p.Lon),
	)
	return out, nil
}

// Session returns the live session with id, creating a new one when id is
// empty, unknown or expired.
func (s *Service) Session(ctx context.Context, id string) (*session.Session, error) {
	if id != "" {
		sess, err := s.Store.Get(ctx, id)
		if err == nil {
			return sess, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return nil, eris.Wrap(err, "app: get session")
		}
	}

	sess, err := s.Store.Create(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "app: create session")
	}
	return sess, nil
}

// View builds the map for a session's results.
func (s *Service) View(sess *session.Session) mapview.View {
	var results []session.Result
	if sess != nil {
		results = sess.Results
	}
	return mapview.Build(results, s.Book, s.Variant)
}
