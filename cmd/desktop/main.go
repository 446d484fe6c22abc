// ConceptDeck desktop server. Serves the REST API and WebSocket event
// stream on localhost; the UI talks to nothing else.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/kimhsiao/conceptdeck/cmd/desktop/handlers"
	"github.com/kimhsiao/conceptdeck/internal/cache"
	"github.com/kimhsiao/conceptdeck/internal/config"
	"github.com/kimhsiao/conceptdeck/internal/export"
	"github.com/kimhsiao/conceptdeck/internal/importer"
	"github.com/kimhsiao/conceptdeck/internal/logging"
	"github.com/kimhsiao/conceptdeck/internal/store"
	"github.com/kimhsiao/conceptdeck/internal/suggest"
	syncctl "github.com/kimhsiao/conceptdeck/internal/sync"
)

func main() {
	cfg := config.Load()
	logging.Init(os.Stdout, logging.ParseLevel(cfg.LogLevel))

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		logging.Error("Failed to create data directory", err, map[string]interface{}{
			"dir": cfg.DataDir,
		})
		os.Exit(1)
	}

	gateway, err := store.Open(cfg.DatabasePath())
	if err != nil {
		logging.Error("Failed to open concept store", err, map[string]interface{}{
			"path": cfg.DatabasePath(),
		})
		os.Exit(1)
	}
	defer gateway.Close()

	snapshot, err := cache.Open(cfg.SnapshotPath())
	if err != nil {
		logging.Error("Failed to open snapshot cache", err, map[string]interface{}{
			"path": cfg.SnapshotPath(),
		})
		os.Exit(1)
	}

	// A fresh snapshot file starts from whatever the store holds; an
	// existing snapshot is the working set and wins until the next pull.
	if snapshot.Len() == 0 {
		if concepts, err := gateway.FetchAll(context.Background()); err == nil && len(concepts) > 0 {
			if err := snapshot.Replace(concepts); err != nil {
				logging.Warn("Failed to seed snapshot from store", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}
	}

	hub := NewWSHub()
	mux := newRouter(gateway, snapshot, hub, cfg)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logging.Info("ConceptDeck desktop server listening", map[string]interface{}{
		"addr":     addr,
		"concepts": snapshot.Len(),
	})
	if err := http.ListenAndServe(addr, mux); err != nil {
		logging.Error("Server stopped", err, nil)
		os.Exit(1)
	}
}

// newRouter wires every endpoint onto a ServeMux. Split from main so
// tests can drive the full route table.
func newRouter(gateway store.Gateway, snapshot *cache.Cache, hub *WSHub, cfg *config.Config) *http.ServeMux {
	guard := handlers.NewOpGuard()
	validator := importer.NewValidator()
	exporter := export.NewService(cfg.ExportDir)
	controller := syncctl.NewController(gateway)

	concepts := handlers.NewConceptHandler(gateway, snapshot, hub)
	topics := handlers.NewTopicHandler(snapshot)
	suggestions := handlers.NewSuggestHandler(suggest.NewSuggester(0))
	imports := handlers.NewImportHandler(snapshot, validator, guard, hub, cfg.ImportMaxBytes)
	exports := handlers.NewExportHandler(snapshot, exporter, guard, hub)
	syncOps := handlers.NewSyncOpsHandler(controller, snapshot, guard, hub)

	mux := http.NewServeMux()

	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"status":"ok","service":"conceptdeck-desktop","concepts":%d,"clients":%d}`,
			snapshot.Len(), hub.ClientCount())
	})

	mux.HandleFunc("/api/concepts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			concepts.ListConcepts(w, r)
		case http.MethodPost:
			concepts.CreateConcept(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/concepts/{id}", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			concepts.GetConcept(w, r)
		case http.MethodPut:
			concepts.UpdateConcept(w, r)
		case http.MethodDelete:
			concepts.DeleteConcept(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/concepts/{id}/preview", concepts.PreviewConcept)

	mux.HandleFunc("/api/topics", topics.ListTopics)
	mux.HandleFunc("/api/suggest/keyword", suggestions.SuggestKeyword)

	mux.HandleFunc("/api/import/preview", imports.Preview)
	mux.HandleFunc("/api/import/commit", imports.Commit)
	mux.HandleFunc("/api/import/discard", imports.Discard)
	mux.HandleFunc("/api/import/status", imports.Status)

	mux.HandleFunc("/api/export/download", exports.Download)
	mux.HandleFunc("/api/export", exports.Export)

	mux.HandleFunc("/api/backup", exports.Backup)
	mux.HandleFunc("/api/backup/restore", exports.Restore)

	mux.HandleFunc("/api/sync/push", syncOps.Push)
	mux.HandleFunc("/api/sync/pull", syncOps.Pull)
	mux.HandleFunc("/api/sync/status", syncOps.Status)

	mux.HandleFunc("/ws", HandleWebSocket(hub))

	return mux
}
