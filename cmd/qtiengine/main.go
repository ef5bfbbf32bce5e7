package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mind-engage/qti-testengine/internal/config"
	"github.com/mind-engage/qti-testengine/internal/store"
)

func main() {
	cfg := config.FromEnv()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var backend store.Backend
	if cfg.StoreDriver == "memory" {
		backend = store.NewMemoryBackend()
	} else {
		sqlBackend, err := store.Open(ctx, cfg.StoreDriver, cfg.StoreDSN)
		if err != nil {
			log.Fatalf("store open failed: %v", err)
		}
		backend = sqlBackend
	}

	engine := NewEngine(cfg, backend)
	h := NewHandler(engine)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/sessions", func(sr chi.Router) {
		sr.Post("/", h.BeginTestSession)
		sr.Route("/{id}", func(ir chi.Router) {
			ir.Get("/", h.GetSession)
			ir.Post("/attempts", h.BeginAttempt)
			ir.Post("/attempts/current", h.EndAttempt)
			ir.Post("/next", h.Next)
			ir.Post("/back", h.Back)
			ir.Post("/jump", h.Jump)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	s := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	log.Printf("qtiengine listening on %s (store=%s)", cfg.HTTPAddr, cfg.StoreDriver)
	log.Fatal(s.ListenAndServe())
}
