// Package application wires the store, the registry and the metrics into the
// operations shared by the console, the HTTP form and the one-shot CLI.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/JonMunkholm/subjects/internal/apperrors"
	"github.com/JonMunkholm/subjects/internal/logging"
	"github.com/JonMunkholm/subjects/internal/metrics"
	"github.com/JonMunkholm/subjects/internal/registry"
	"github.com/JonMunkholm/subjects/internal/store"
	"github.com/JonMunkholm/subjects/internal/subject"
)

// Options configures an App.
type Options struct {
	StorePath  string
	ExportPath string
	Sync       bool

	// Registerer receives the metrics. Nil means a private registry.
	Registerer prometheus.Registerer
	Logger     *slog.Logger
}

// App owns the store handle from New until Close.
type App struct {
	store       *store.FileStore
	registry    *registry.Registry
	metrics     *metrics.Metrics
	exportPath  string
	logger      *slog.Logger
	unsubscribe func()
}

// ExportResult describes a finished export.
type ExportResult struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	Count  int    `json:"count"`
	Sorted bool   `json:"sorted"`
}

// New opens the store and loads the registry from it. If loading fails the
// store is closed again and nothing stays open.
func New(opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := metrics.New(reg)

	st, err := store.Open(opts.StorePath,
		store.WithLogger(logger),
		store.WithSync(opts.Sync),
		store.WithSkipHook(func(store.ParseError) { m.RecordSkippedLine() }),
	)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	r, err := registry.Open(st, registry.WithLogger(logger))
	if err != nil {
		if cerr := st.Close(); cerr != nil {
			logger.Warn("close store after failed load", "error", cerr)
		}
		return nil, err
	}
	m.SetSubjects(r.Len())

	a := &App{
		store:      st,
		registry:   r,
		metrics:    m,
		exportPath: opts.ExportPath,
		logger:     logger,
	}
	a.unsubscribe = r.Subscribe(func(added []subject.Subject) {
		m.RecordAdded(len(added), r.Len())
	})

	return a, nil
}

// Registry returns the underlying registry.
func (a *App) Registry() *registry.Registry {
	return a.registry
}

// ExportPath returns the configured default export path.
func (a *App) ExportPath() string {
	return a.exportPath
}

// StorePath returns the path of the open store file.
func (a *App) StorePath() string {
	return a.store.Path()
}

// Subjects returns a snapshot of the registered subjects.
func (a *App) Subjects() []subject.Subject {
	return a.registry.Subjects()
}

// AddSubject validates in and adds the resulting subject. A validation
// failure is returned as a *subject.ValidationError and counted by reason.
func (a *App) AddSubject(ctx context.Context, in subject.Input) (subject.Subject, error) {
	s, err := subject.FromInput(in)
	if err != nil {
		var verr *subject.ValidationError
		if errors.As(err, &verr) {
			a.metrics.RecordRejected(verr)
			logging.FromContext(ctx).Debug("subject rejected", "reasons", verr.Reasons())
		}
		return subject.Subject{}, err
	}

	if err := a.registry.Add(s); err != nil {
		logging.FromContext(ctx).Error("add subject", "error", err)
		return subject.Subject{}, err
	}
	return s, nil
}

// Export writes the registry to path, or to the configured export path when
// path is empty. Every export gets an ID that is logged and returned.
func (a *App) Export(ctx context.Context, path string, sorted bool) (ExportResult, error) {
	if path == "" {
		path = a.exportPath
	}
	if path == "" {
		return ExportResult{}, apperrors.New(apperrors.CodeBadRequest, "export path is empty")
	}
	// Creating the export truncates its target, which would wipe the register.
	same, err := a.store.IsStoreFile(path)
	if err != nil {
		return ExportResult{}, err
	}
	if same {
		return ExportResult{}, apperrors.New(apperrors.CodeBadRequest, "export path is the store file")
	}

	res := ExportResult{
		ID:     uuid.NewString(),
		Path:   path,
		Count:  a.registry.Len(),
		Sorted: sorted,
	}
	logger := logging.FromContext(logging.WithOperationID(ctx, res.ID))

	start := time.Now()
	err = a.registry.Export(path, sorted)
	a.metrics.ObserveExport(sorted, err, time.Since(start))
	if err != nil {
		logger.Error("export failed", "path", path, "error", err)
		return ExportResult{}, err
	}

	logger.Info("export finished", "path", path, "count", res.Count, "sorted", sorted)
	return res, nil
}

// Close releases the store. It is safe to call once on every exit path.
func (a *App) Close() error {
	if a.unsubscribe != nil {
		a.unsubscribe()
	}
	return a.store.Close()
}
