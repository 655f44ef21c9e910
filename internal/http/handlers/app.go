package handlers

import (
	"encoding/json"
	"net/http"

	"printforge/internal/infra"
	"printforge/internal/pipeline"
	"printforge/internal/storage"
)

// App carries the handler dependencies, injected by the composition root.
type App struct {
	Svc     *pipeline.Service
	Worker  *pipeline.Worker
	Trigger *pipeline.Trigger
	Store   *storage.FileStore
	Logger  infra.Logger
}

func NewApp(svc *pipeline.Service, worker *pipeline.Worker, trigger *pipeline.Trigger, store *storage.FileStore, logger infra.Logger) *App {
	return &App{Svc: svc, Worker: worker, Trigger: trigger, Store: store, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, message string) {
	a.json(w, code, map[string]string{"error": kind, "message": message})
}
