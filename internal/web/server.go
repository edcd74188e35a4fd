// Package web serves the prediction page and its JSON API.
package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/sells-group/crime-map/internal/app"
	"github.com/sells-group/crime-map/internal/config"
	"github.com/sells-group/crime-map/internal/session"
)

// SessionCookie holds the visitor's session id.
const SessionCookie = "crime_map_session"

// Server exposes an app.Service over HTTP.
type Server struct {
	svc     *app.Service
	server  config.ServerConfig
	tileURL string
	zoom    int
	nowFunc func() time.Time
}

// NewServer creates a Server.
func NewServer(svc *app.Service, server config.ServerConfig, m config.MapConfig) *Server {
	return &Server{svc: svc, server: server, tileURL: m.TileURL, zoom: m.Zoom, nowFunc: time.Now}
}

// Handler builds the chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(s.withSession)
		r.Get("/", s.handlePage)
		r.Post("/predict", s.handlePagePredict)
	})

	origins := s.server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	perMin := s.server.RateLimitPerMin
	if perMin <= 0 {
		perMin = 120
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
		r.Use(httprate.LimitByIP(perMin, time.Minute))

		r.Get("/codes", s.handleCodes)
		r.Get("/centroids", s.handleCentroids)

		r.Group(func(r chi.Router) {
			r.Use(s.withSession)
			r.Post("/predict", s.handleAPIPredict)
			r.Get("/session", s.handleSession)
			r.Get("/session/markers.geojson", s.handleMarkers)
		})
	})

	return r
}

type ctxKey struct{}

// withSession resolves the session cookie, replacing unknown or expired ids
// with a fresh session.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(SessionCookie); err == nil {
			id = c.Value
		}

		sess, err := s.svc.Session(r.Context(), id)
		if err != nil {
			zap.L().Error("web: resolve session", zap.Error(err))
			http.Error(w, "session unavailable", http.StatusInternalServerError)
			return
		}
		if sess.ID != id {
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    sess.ID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sess)))
	})
}

func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(ctxKey{}).(*session.Session)
	return sess
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
		)
	})
}
