package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"cohortetl/internal/config"
	apperrors "cohortetl/internal/errors"
	"cohortetl/internal/files"
	"cohortetl/pkg/contracts/domain"
)

// CurrentDir is the directory under the output root that readers consume
const CurrentDir = "current"

// Warehouse mirrors a star schema into an analytical store.
// Publish must be all-or-nothing.
type Warehouse interface {
	Publish(ctx context.Context, runID string, s *domain.StarSchema) error
}

// Publisher writes every table of a run and swaps them into place together
type Publisher struct {
	files     *files.Manager
	csv       *CSVWriter
	cfg       config.OutputConfig
	warehouse Warehouse
	logger    *slog.Logger
}

// NewPublisher creates a publisher. warehouse may be nil.
func NewPublisher(fm *files.Manager, cfg config.OutputConfig, warehouse Warehouse, logger *slog.Logger) *Publisher {
	if fm == nil {
		fm = files.NewManager(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		files:     fm,
		csv:       NewCSVWriter(fm),
		cfg:       cfg,
		warehouse: warehouse,
		logger:    logger.With(slog.String("component", "publisher")),
	}
}

// Target returns the directory holding the published tables
func (p *Publisher) Target() string {
	return filepath.Join(p.cfg.Dir, CurrentDir)
}

// Publish writes the tables and manifest to a staging directory, swaps them
// in as the current outputs and then mirrors them into the warehouse when one
// is configured. The warehouse commit is the last step: when it fails the
// swap is rolled back, and once it succeeds the run counts as published even
// if ctx is cancelled afterwards. On any error nothing visible changes and
// the staging directory is removed.
func (p *Publisher) Publish(ctx context.Context, s *domain.StarSchema, manifest Manifest) error {
	staged, err := p.files.Stage(p.cfg.Dir, manifest.RunID)
	if err != nil {
		return apperrors.NewPublishError("failed to stage outputs", err)
	}

	if err := p.write(ctx, staged, s, manifest); err != nil {
		p.files.Discard(staged)
		return err
	}

	if err := ctx.Err(); err != nil {
		p.files.Discard(staged)
		return apperrors.NewPublishError("publish cancelled", err)
	}

	swap, err := p.files.BeginSwap(staged, p.Target(), manifest.RunID)
	if err != nil {
		p.files.Discard(staged)
		return apperrors.NewPublishError("failed to swap outputs", err)
	}

	if p.warehouse != nil {
		if err := p.warehouse.Publish(ctx, manifest.RunID, s); err != nil {
			if rerr := swap.Rollback(); rerr != nil {
				p.logger.ErrorContext(ctx, "Failed to roll back outputs after warehouse failure",
					slog.String("run_id", manifest.RunID),
					slog.String("error", rerr.Error()))
			}
			return apperrors.NewPublishError("warehouse publish failed", err)
		}
	}
	swap.Commit()

	p.logger.InfoContext(ctx, "Run published",
		slog.String("run_id", manifest.RunID),
		slog.String("target", p.Target()),
		slog.Any("tables", manifest.Tables))
	return nil
}

// write renders every table and the manifest into dir
func (p *Publisher) write(ctx context.Context, dir string, s *domain.StarSchema, manifest Manifest) error {
	for _, t := range Tables(s) {
		if err := ctx.Err(); err != nil {
			return apperrors.NewPublishError("publish cancelled", err)
		}
		path := filepath.Join(dir, t.FileName())
		if err := p.csv.WriteCSV(path, WriteOptions{
			Headers:   t.Headers,
			Records:   t.Rows,
			BOMPrefix: p.cfg.BOMPrefix,
		}); err != nil {
			return apperrors.NewPublishError(fmt.Sprintf("failed to write %s", t.FileName()), err)
		}
		p.logger.DebugContext(ctx, "Table written",
			slog.String("table", t.Name),
			slog.Int("rows", len(t.Rows)))
	}

	if manifest.FinishedAt.IsZero() {
		manifest.FinishedAt = time.Now().UTC()
	}
	data, err := manifest.Marshal()
	if err != nil {
		return apperrors.NewPublishError("failed to encode manifest", err)
	}
	if err := p.files.WriteFile(filepath.Join(dir, ManifestFile), data); err != nil {
		return apperrors.NewPublishError("failed to write manifest", err)
	}
	return nil
}
