// Package app assembles the application: configuration, stores, agents and
// their shared infrastructure. Setup builds everything; Close releases it
// in reverse order.
package app

import (
	"database/sql"
	"errors"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/insightlab/insighthub/internal/artifact"
	"github.com/insightlab/insighthub/internal/catalog"
	"github.com/insightlab/insighthub/internal/chat"
	"github.com/insightlab/insighthub/internal/config"
	"github.com/insightlab/insighthub/internal/dataset"
	"github.com/insightlab/insighthub/internal/knowledge"
	"github.com/insightlab/insighthub/internal/log"
	"github.com/insightlab/insighthub/internal/rag"
	"github.com/insightlab/insighthub/internal/security"
	"github.com/insightlab/insighthub/internal/session"
	"github.com/insightlab/insighthub/internal/vision"
)

// App holds every initialized component. Fields are read-only after Setup.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder

	DBPool   *pgxpool.Pool
	SQLiteDB *sql.DB

	Knowledge *knowledge.Store
	Indexer   *rag.Indexer
	Datasets  *dataset.Store
	Sessions  *session.Store
	Artifacts *artifact.Store

	Registry *catalog.Registry
	Chat     *chat.Agent
	Images   *vision.ImageAnalyzer
	Videos   *vision.VideoAnalyzer

	PathValidator *security.Path
	URLValidator  *security.URL

	Tools []ai.Tool

	// cleanups run in reverse registration order.
	cleanups []func() error
}

// onClose registers a cleanup to run during Close.
func (a *App) onClose(fn func() error) {
	a.cleanups = append(a.cleanups, fn)
}

// Close releases all resources. Safe to call after a partial Setup.
func (a *App) Close() error {
	var errs []error
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		if err := a.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.cleanups = nil
	return errors.Join(errs...)
}
