// Package etl runs a movieload job: load the source file, run the
// data-quality steps, back up and replace the database table, then validate
// what was uploaded.
//
// Every step appends its findings to a runlog.Sink. The upload reports one
// StepResult per database step instead of failing as a whole, so callers can
// tell a clean run from one that replaced the table but could not apply the
// identifier constraints.
package etl

import (
	"context"
	"fmt"
	"time"

	"github.com/JonMunkholm/movieload/internal/config"
	"github.com/JonMunkholm/movieload/internal/logging"
	"github.com/JonMunkholm/movieload/internal/runlog"
	"github.com/JonMunkholm/movieload/internal/store"
	"github.com/JonMunkholm/movieload/internal/table"
)

// Log titles for the upload.
const (
	TitleBackup = "SQL Backup"
	TitleUpload = "SQL Upload"
)

// Step names one database step of the upload.
type Step string

const (
	StepConnect    Step = "connect"
	StepExists     Step = "exists"
	StepBackup     Step = "backup"
	StepReplace    Step = "replace"
	StepNotNull    Step = "not_null"
	StepPrimaryKey Step = "primary_key"
	StepRestore    Step = "restore"
)

// uploadSteps are the steps a complete upload runs, in order.
var uploadSteps = []Step{StepConnect, StepExists, StepBackup, StepReplace, StepNotNull, StepPrimaryKey}

// StepResult is the outcome of one step.
type StepResult struct {
	Step     Step
	Rows     int64 // Rows copied or inserted, where the step moves rows
	Skipped  bool  // Step did not apply, e.g. no backup for a new table
	Err      error
	Duration time.Duration
}

// UploadResult collects the outcome of every step that ran.
type UploadResult struct {
	Table      string
	Existed    bool  // Table existed before the upload
	BackupRows int64 // Rows copied to the backup table
	Inserted   int64 // Rows inserted into the new table
	Restored   bool  // Backup was copied back after a partial failure
	Steps      []StepResult
	Duration   time.Duration
}

// Step returns the result of the named step, if it ran.
func (r *UploadResult) Step(step Step) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Step == step {
			return s, true
		}
	}
	return StepResult{}, false
}

// FailedStep returns the first step that failed. The restore step is not
// considered; see Restored.
func (r *UploadResult) FailedStep() (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Err != nil && s.Step != StepRestore {
			return s, true
		}
	}
	return StepResult{}, false
}

// Err returns the first step failure wrapped with the step name, or nil.
func (r *UploadResult) Err() error {
	if s, ok := r.FailedStep(); ok {
		return fmt.Errorf("upload %s: %s: %w", r.Table, s.Step, s.Err)
	}
	return nil
}

// Complete reports whether every upload step ran without error.
func (r *UploadResult) Complete() bool {
	if _, failed := r.FailedStep(); failed {
		return false
	}
	for _, step := range uploadSteps {
		if _, ok := r.Step(step); !ok {
			return false
		}
	}
	return true
}

// Partial reports whether the table was replaced but a later step failed,
// leaving the new table without its identifier constraints.
func (r *UploadResult) Partial() bool {
	s, ok := r.FailedStep()
	return ok && (s.Step == StepNotNull || s.Step == StepPrimaryKey)
}

// UploadOptions configures Upload.
type UploadOptions struct {
	Table            string
	BackupTable      string
	IDColumn         string
	PrimaryKey       string // Constraint name
	BatchSize        int
	RestoreOnFailure bool
}

// UploadOptionsFromConfig derives upload options from the run configuration.
func UploadOptionsFromConfig(cfg *config.Config) UploadOptions {
	return UploadOptions{
		Table:            cfg.Upload.Table,
		BackupTable:      cfg.Upload.BackupTable(),
		IDColumn:         cfg.Input.IDColumn,
		PrimaryKey:       cfg.PrimaryKeyName(),
		BatchSize:        cfg.Upload.BatchSize,
		RestoreOnFailure: cfg.Upload.RestoreOnFailure,
	}
}

// Upload backs up and replaces the target table with t on a single session:
//
//  1. check whether the table exists
//  2. if so, copy it to the backup table, replacing any older backup
//  3. drop and recreate the table from t and insert its rows in batches
//  4. mark the identifier column NOT NULL
//  5. add the primary key constraint on the identifier column
//
// The first failing step stops the sequence. Failures are logged to the
// console and summarized in a single sink entry; they are never returned as
// a bare error. The session is always released. The caller owns db.
func Upload(ctx context.Context, db store.DB, t *table.Table, opts UploadOptions, sink runlog.Sink) *UploadResult {
	logger := logging.WithFields(ctx, "table", opts.Table)
	start := time.Now()
	res := &UploadResult{Table: opts.Table}
	defer func() {
		res.Duration = time.Since(start)
		sink.Add(TitleUpload, summarize(res, opts))
	}()

	// run records one step and reports whether the sequence may continue.
	run := func(step Step, fn func() (int64, error)) bool {
		stepStart := time.Now()
		rows, err := fn()
		sr := StepResult{Step: step, Rows: rows, Err: err, Duration: time.Since(stepStart)}
		res.Steps = append(res.Steps, sr)
		if err != nil {
			f := store.Describe(err)
			logger.Error("upload step failed",
				"step", step,
				"code", f.Code,
				"sql_state", f.SQLState,
				"error", err,
			)
			return false
		}
		logger.Debug("upload step done", "step", step, "rows", rows, "duration", sr.Duration)
		return true
	}

	var sess store.Session
	if !run(StepConnect, func() (int64, error) {
		var err error
		sess, err = db.Acquire(ctx)
		return 0, err
	}) {
		return res
	}
	defer sess.Release()

	if !run(StepExists, func() (int64, error) {
		var err error
		res.Existed, err = sess.TableExists(ctx, opts.Table)
		return 0, err
	}) {
		return res
	}

	if res.Existed {
		sink.Add(TitleBackup, fmt.Sprintf("Creating a backup for table: %s", opts.Table))
		logger.Info("creating backup", "backup", opts.BackupTable)
		if !run(StepBackup, func() (int64, error) {
			n, err := sess.CopyTable(ctx, opts.Table, opts.BackupTable)
			res.BackupRows = n
			return n, err
		}) {
			return res
		}
	} else {
		res.Steps = append(res.Steps, StepResult{Step: StepBackup, Skipped: true})
	}

	if !run(StepReplace, func() (int64, error) {
		n, err := sess.ReplaceTable(ctx, opts.Table, t, opts.BatchSize)
		res.Inserted = n
		return n, err
	}) {
		return res
	}
	logger.Info("table replaced", "rows", res.Inserted)

	ok := run(StepNotNull, func() (int64, error) {
		return 0, sess.SetNotNull(ctx, opts.Table, opts.IDColumn)
	}) && run(StepPrimaryKey, func() (int64, error) {
		return 0, sess.AddPrimaryKey(ctx, opts.Table, opts.PrimaryKey, opts.IDColumn)
	})

	if !ok && opts.RestoreOnFailure && res.Existed {
		logger.Warn("restoring table from backup", "backup", opts.BackupTable)
		res.Restored = run(StepRestore, func() (int64, error) {
			return sess.CopyTable(ctx, opts.BackupTable, opts.Table)
		})
	}

	if ok {
		logger.Info("upload complete", "rows", res.Inserted, "existed", res.Existed)
	}
	return res
}

// summarize renders the single sink entry describing an upload.
func summarize(r *UploadResult, opts UploadOptions) string {
	if r.Complete() {
		msg := fmt.Sprintf("Uploaded %d rows to table: %s", r.Inserted, r.Table)
		if r.Existed {
			msg += fmt.Sprintf(" (previous %d rows backed up to %s)", r.BackupRows, opts.BackupTable)
		}
		return msg
	}

	s, ok := r.FailedStep()
	if !ok {
		return fmt.Sprintf("Upload to table %s did not finish", r.Table)
	}
	msg := fmt.Sprintf("Upload to table %s failed at step %s: %s", r.Table, s.Step, store.Describe(s.Err))
	if r.Partial() {
		msg += fmt.Sprintf(" Table was replaced with %d rows without its key constraints.", r.Inserted)
	}
	if r.Restored {
		msg += fmt.Sprintf(" Restored %s from %s.", r.Table, opts.BackupTable)
	}
	return msg
}
