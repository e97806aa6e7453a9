package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/runner"
	"github.com/sells-group/intake-cli/internal/store"
)

var servePort int

// runRecord tracks an async intake pass triggered over HTTP.
type runRecord struct {
	ID     string        `json:"id"`
	Status string        `json:"status"` // running, complete
	Stats  *runner.Stats `json:"stats,omitempty"`
}

// runRegistry is the in-memory index of triggered runs.
type runRegistry struct {
	mu   sync.RWMutex
	runs map[string]*runRecord
}

func newRunRegistry() *runRegistry {
	return &runRegistry{runs: map[string]*runRecord{}}
}

func (r *runRegistry) start() *runRecord {
	rec := &runRecord{ID: uuid.New().String(), Status: "running"}
	r.mu.Lock()
	r.runs[rec.ID] = rec
	r.mu.Unlock()
	return rec
}

func (r *runRegistry) complete(id string, stats runner.Stats) {
	r.mu.Lock()
	if rec, ok := r.runs[id]; ok {
		rec.Status = "complete"
		rec.Stats = &stats
	}
	r.mu.Unlock()
}

func (r *runRegistry) get(id string) (*runRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.runs[id]
	return rec, ok
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for triggering and inspecting intake runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		registry := newRunRegistry()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
		}))

		r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Post("/runs", func(w http.ResponseWriter, req *http.Request) {
			rec := registry.start()
			go func() {
				stats := env.Runner.RunConcurrent(ctx, env.Collectors)
				registry.complete(rec.ID, stats)
				zap.L().Info("triggered intake pass complete",
					zap.String("run_id", rec.ID),
					zap.Int64("created", stats.Created))
			}()
			writeJSON(w, http.StatusAccepted, rec)
		})

		r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
			rec, ok := registry.get(chi.URLParam(req, "id"))
			if !ok {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
				return
			}
			writeJSON(w, http.StatusOK, rec)
		})

		r.Get("/entries", func(w http.ResponseWriter, req *http.Request) {
			filter := store.EntryFilter{
				Priority: model.Priority(req.URL.Query().Get("priority")),
				Topic:    req.URL.Query().Get("topic"),
			}
			if filter.Priority != "" && !filter.Priority.Valid() {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid priority"})
				return
			}
			entries, err := env.Store.List(req.Context(), filter)
			if err != nil {
				zap.L().Error("list entries failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "list failed"})
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
		})

		r.Get("/costs", func(w http.ResponseWriter, req *http.Request) {
			summary, err := env.Tracker.Summarize()
			if err != nil {
				zap.L().Error("cost summary failed", zap.Error(err))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "summary failed"})
				return
			}
			writeJSON(w, http.StatusOK, summary)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
