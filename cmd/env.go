package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/crime-map/internal/app"
	"github.com/sells-group/crime-map/internal/codes"
	"github.com/sells-group/crime-map/internal/config"
	"github.com/sells-group/crime-map/internal/fetcher"
	"github.com/sells-group/crime-map/internal/geo"
	"github.com/sells-group/crime-map/internal/incident"
	"github.com/sells-group/crime-map/internal/predict"
	"github.com/sells-group/crime-map/internal/resilience"
	"github.com/sells-group/crime-map/internal/session"
)

// dataset is everything derived from the incident file at startup.
type dataset struct {
	Records   []incident.Record
	Book      *codes.Book
	Centroids geo.Centroids
}

// loadDataset reads the configured incident file and builds the lookups.
func loadDataset(ctx context.Context, c *config.Config) (*dataset, error) {
	start := time.Now()
	opener := fetcher.NewOpener(fetcher.Options{
		Timeout:    time.Duration(c.Dataset.TimeoutSecs) * time.Second,
		MaxRetries: 3,
	})

	records, err := incident.Load(ctx, opener, c.Dataset.Source)
	if err != nil {
		return nil, eris.Wrap(err, "load dataset")
	}

	ds := &dataset{
		Records:   records,
		Book:      codes.Build(records),
		Centroids: geo.Aggregate(records),
	}
	zap.L().Info("dataset loaded",
		zap.String("source", c.Dataset.Source),
		zap.Int("records", len(records)),
		zap.Int("areas", len(ds.Centroids)),
		zap.Int("crime_codes", ds.Book.Crime.Len()),
		zap.Int("weapon_codes", ds.Book.Weapon.Len()),
		zap.Int("premises_codes", ds.Book.Premises.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return ds, nil
}

// newPredictor builds the model client from config.
func newPredictor(c config.ModelConfig) *predict.HTTPClient {
	retry := resilience.NewRetryConfig(c.MaxAttempts, c.InitialBackoffMs)

	cbCfg := resilience.NewCircuitBreakerConfig(c.FailureThreshold, c.ResetTimeoutSecs)
	cbCfg.ShouldTrip = predict.TripOnUnavailable
	cbCfg.OnStateChange = func(from, to resilience.CircuitState) {
		zap.L().Warn("model circuit breaker state change",
			zap.String("from", from.String()),
			zap.String("to", to.String()),
		)
	}

	return predict.NewHTTPClient(c.BaseURL,
		predict.WithHTTPClient(&http.Client{Timeout: time.Duration(c.TimeoutSecs) * time.Second}),
		predict.WithRetry(retry),
		predict.WithCircuitBreaker(resilience.NewCircuitBreaker(cbCfg)),
		predict.WithRateLimit(c.RateLimit),
	)
}

// initStore opens and migrates the configured session store.
func initStore(ctx context.Context, c config.SessionConfig) (session.Store, error) {
	return session.Open(ctx, c.Driver, c.DatabaseURL, time.Duration(c.TTLMins)*time.Minute)
}

// appEnv holds the wired service for the serve command.
type appEnv struct {
	Data      *dataset
	Store     session.Store
	Predictor *predict.HTTPClient
	Service   *app.Service
}

// Close releases the session store.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initApp loads the dataset, opens the session store and wires the service.
// Callers should defer env.Close().
func initApp(ctx context.Context, c *config.Config) (*appEnv, error) {
	ds, err := loadDataset(ctx, c)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx, c.Session)
	if err != nil {
		return nil, err
	}

	p := newPredictor(c.Model)
	return &appEnv{
		Data:      ds,
		Store:     st,
		Predictor: p,
		Service:   app.New(p, ds.Centroids, ds.Book, st, c.Server.Variant),
	}, nil
}
