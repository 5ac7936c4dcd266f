package etl

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/movieload/internal/config"
	"github.com/JonMunkholm/movieload/internal/logging"
	"github.com/JonMunkholm/movieload/internal/quality"
	"github.com/JonMunkholm/movieload/internal/runlog"
	"github.com/JonMunkholm/movieload/internal/schema"
	"github.com/JonMunkholm/movieload/internal/store"
	"github.com/JonMunkholm/movieload/internal/table"
)

// TitleDataLoaded is the log title for the load step.
const TitleDataLoaded = "Data Loaded"

// Opener connects to the database. A run opens one pool for the upload and a
// fresh one for validation.
type Opener func(ctx context.Context) (store.DB, error)

// Report summarizes a run.
type Report struct {
	Stats       table.ReadStats
	Rows        int
	Columns     int
	Checks      quality.CheckResult
	Masked      bool
	Schema      quality.SchemaReport
	Identifiers quality.FillResult
	Upload      *UploadResult
	Validation  *ValidationResult
}

// Pipeline runs one job against a configuration.
type Pipeline struct {
	cfg  *config.Config
	open Opener
	log  *runlog.Log
}

// NewPipeline creates a pipeline writing to log.
func NewPipeline(cfg *config.Config, open Opener, log *runlog.Log) *Pipeline {
	return &Pipeline{cfg: cfg, open: open, log: log}
}

// Run executes the job. The run log is exported to the configured path when
// Run returns, whatever the outcome.
//
// Loading and identifier repair errors stop the run. An incomplete upload does
// not: validation still reads back whatever table is there. The returned
// error joins the upload failure, the validation failure and any export
// failure.
func (p *Pipeline) Run(ctx context.Context) (rep *Report, err error) {
	logger := logging.FromContext(ctx)
	rep = &Report{}

	defer func() {
		if exportErr := p.log.Export(p.cfg.Output.LogPath); exportErr != nil {
			err = errors.Join(err, fmt.Errorf("export log: %w", exportErr))
			return
		}
		logger.Info("log exported", "path", p.cfg.Output.LogPath, "entries", p.log.Len())
	}()

	t, err := p.load(ctx, rep)
	if err != nil {
		return rep, err
	}

	if err := p.prepare(ctx, t, rep); err != nil {
		return rep, err
	}

	opts := UploadOptionsFromConfig(p.cfg)
	rep.Upload = UploadWith(ctx, p.open, t, opts, p.log)

	v, validateErr := p.validate(ctx, opts.Table)
	if validateErr == nil {
		rep.Validation = &v
	}

	return rep, errors.Join(rep.Upload.Err(), validateErr)
}

// load reads the source file and logs its shape.
func (p *Pipeline) load(ctx context.Context, rep *Report) (*table.Table, error) {
	in := p.cfg.Input
	t, stats, err := table.ReadFile(in.Path, table.ReadOptions{
		Delimiter: in.Delim(),
		Encoding:  in.Encoding,
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", in.Path, err)
	}

	rep.Stats = stats
	rep.Rows, rep.Columns = t.Len(), t.Width()
	p.log.Addf(TitleDataLoaded, "Loaded table with %d rows and %d columns.", t.Len(), t.Width())
	logging.FromContext(ctx).Info("table loaded",
		"path", in.Path,
		"rows", t.Len(),
		"columns", t.Width(),
		"bytes", stats.BytesRead,
	)
	return t, nil
}

// prepare runs the in-memory steps between load and upload.
func (p *Pipeline) prepare(ctx context.Context, t *table.Table, rep *Report) error {
	logger := logging.FromContext(ctx)
	in := p.cfg.Input

	renamed, err := t.Rename(in.IndexColumn, in.IDColumn)
	switch {
	case err != nil:
		logger.Warn("index column not renamed", "error", err)
	case renamed && in.IndexColumn != in.IDColumn:
		logger.Info("renamed index column", "from", in.IndexColumn, "to", in.IDColumn)
	}

	rep.Checks = quality.Check(t, p.log, quality.CheckOptions{UniqueColumn: p.cfg.Quality.UniqueColumn})

	rep.Masked = quality.MaskColumn(t, p.cfg.Quality.MaskColumn, p.log)
	if !rep.Masked {
		logger.Info("mask column not present", "column", p.cfg.Quality.MaskColumn)
	}

	s, err := schema.Load(p.cfg.Quality.SchemaFile)
	if err != nil {
		logger.Warn("schema validation skipped", "error", err)
	} else {
		logger.Debug("schema loaded", "file", p.cfg.Quality.SchemaFile, "columns", s.Names())
		rep.Schema = quality.ValidateSchema(t, s)
		quality.LogSchemaReport(p.log, rep.Schema)
		if !rep.Schema.OK() {
			logger.Warn("schema mismatch",
				"missing", len(rep.Schema.Missing),
				"type_mismatches", len(rep.Schema.Mismatches),
			)
		}
	}

	rep.Identifiers, err = quality.FillIdentifiers(t, in.IDColumn)
	if err != nil {
		return fmt.Errorf("fill %s column: %w", in.IDColumn, err)
	}
	if rep.Identifiers.Synthesized > 0 {
		logger.Info("identifier values synthesized",
			"column", in.IDColumn,
			"nulls", rep.Identifiers.Nulls,
			"synthesized", rep.Identifiers.Synthesized,
			"inserted", rep.Identifiers.Inserted,
		)
	}
	return nil
}

// validate opens a fresh pool and validates the uploaded table.
func (p *Pipeline) validate(ctx context.Context, tableName string) (ValidationResult, error) {
	db, err := p.open(ctx)
	if err != nil {
		return ValidationResult{}, fmt.Errorf("validate %s: %w", tableName, err)
	}
	defer db.Close()

	return Validate(ctx, db, tableName, p.log)
}

// UploadWith opens a pool, runs Upload and closes the pool. A connection
// failure is recorded as a failed connect step.
func UploadWith(ctx context.Context, open Opener, t *table.Table, opts UploadOptions, sink runlog.Sink) *UploadResult {
	db, err := open(ctx)
	if err != nil {
		res := &UploadResult{
			Table: opts.Table,
			Steps: []StepResult{{Step: StepConnect, Err: err}},
		}
		logging.WithFields(ctx, "table", opts.Table).Error("upload step failed",
			"step", StepConnect, "code", store.Describe(err).Code, "error", err)
		sink.Add(TitleUpload, summarize(res, opts))
		return res
	}
	defer db.Close()

	return Upload(ctx, db, t, opts, sink)
}
