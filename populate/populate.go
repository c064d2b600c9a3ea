// Package populate implements the bulk population pipeline: bounded, serially
// submitted batches of synthesized rows with incremental progress reporting
// and partial-failure recovery.
package populate

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/semaphore"

	"github.com/go-tabular/tabular"
	errors "github.com/go-tabular/tabular/errors"
	"github.com/go-tabular/tabular/logging"
)

// Coordinator is the view-side collaborator a Runner notifies around a run.
// BeginPopulate must snapshot the current view, clear it and reset scroll;
// AbortPopulate must restore that snapshot; FinishPopulate must refetch the
// authoritative row set and reset scroll again.
type Coordinator interface {
	BeginPopulate(ctx context.Context, tableID string) error
	AbortPopulate(tableID string) error
	FinishPopulate(ctx context.Context, tableID string) error
}

// RunnerConf configures a population Runner
type RunnerConf struct {
	BatchSize       int           // Rows per batch. Defaults to 1000.
	CellChunkSize   int           // Cell writes per store request. Defaults to 500.
	BatchPause      time.Duration // Pause between batches, yielding the event loop. Defaults to 25ms.
	ProgressCadence int           // Emit progress every Nth batch (the final batch always emits). Defaults to 3.
	Logger          logging.Logger
}

// Runner drives bulk population runs against a Store. At most one run may be
// in flight per table; a second is rejected, never queued.
type Runner struct {
	store tabular.Store
	coord Coordinator
	conf  *RunnerConf

	guardLock sync.Mutex
	guards    map[string]*semaphore.Weighted
}

// CreateRunner produces a Runner for the given store and view coordinator.
// coord may be nil when no view is attached (e.g. headless seeding).
func CreateRunner(store tabular.Store, coord Coordinator, conf *RunnerConf) *Runner {
	if conf == nil {
		conf = &RunnerConf{}
	}
	if conf.BatchSize == 0 {
		conf.BatchSize = 1000
	}
	if conf.CellChunkSize == 0 {
		conf.CellChunkSize = 500
	}
	if conf.BatchPause == 0 {
		conf.BatchPause = 25 * time.Millisecond
	}
	if conf.ProgressCadence == 0 {
		conf.ProgressCadence = 3
	}
	if conf.Logger == nil {
		conf.Logger = logging.NewNopLogger()
	}
	return &Runner{
		store:  store,
		coord:  coord,
		conf:   conf,
		guards: make(map[string]*semaphore.Weighted),
	}
}

// Run is a handle on one in-flight population run
type Run struct {
	progress chan tabular.Progress
	done     chan struct{}
	err      error
}

// Progress returns the run's progress stream. The channel is buffered for the
// whole run and closed when the run terminates, so slow consumers never stall
// batch submission.
func (r *Run) Progress() <-chan tabular.Progress {
	return r.progress
}

// Wait blocks until the run terminates and returns its final error, if any
func (r *Run) Wait() error {
	<-r.done
	return r.err
}

func (r *Runner) tableGuard(tableID string) *semaphore.Weighted {
	r.guardLock.Lock()
	defer r.guardLock.Unlock()
	guard, ok := r.guards[tableID]
	if !ok {
		guard = semaphore.NewWeighted(1)
		r.guards[tableID] = guard
	}
	return guard
}

// Start validates and launches a population run of total rows against the
// given table. Validation and conflict errors surface synchronously, before
// any batch is issued; batch failures surface through Wait.
func (r *Runner) Start(ctx context.Context, tableID string, total int) (*Run, error) {
	if total <= 0 {
		return nil, errors.ValidationError{Reason: fmt.Sprintf("row count %d must be positive", total)}
	}
	guard := r.tableGuard(tableID)
	if !guard.TryAcquire(1) {
		return nil, errors.PopulateInFlightError{TableID: tableID}
	}
	table, err := r.store.GetTable(ctx, tableID)
	if err != nil {
		guard.Release(1)
		return nil, err
	}
	if len(table.Columns) == 0 {
		guard.Release(1)
		return nil, errors.ValidationError{Reason: fmt.Sprintf("table %s has no columns", tableID)}
	}
	totalBatches := (total + r.conf.BatchSize - 1) / r.conf.BatchSize
	run := &Run{
		progress: make(chan tabular.Progress, totalBatches+1),
		done:     make(chan struct{}),
	}
	go func() {
		defer guard.Release(1)
		defer close(run.done)
		defer close(run.progress)
		run.err = r.execute(ctx, run, table, total, totalBatches)
	}()
	return run, nil
}

func (r *Runner) execute(ctx context.Context, run *Run, table *tabular.Table, total int, totalBatches int) error {
	columns := table.OrderedColumns()
	rowsCreated := 0
	seq := 0
	for batch := 1; batch <= totalBatches; batch++ {
		if batch == 1 {
			// the view is cleared once, before the first submission, so the
			// renderer never sees a rapidly-growing partial list
			if r.coord != nil {
				if err := r.coord.BeginPopulate(ctx, table.ID); err != nil {
					return err
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return r.abort(table.ID, batch, totalBatches, err)
		}
		count := r.conf.BatchSize
		if batch == totalBatches {
			count = total - r.conf.BatchSize*(totalBatches-1)
		}
		rows, writes, err := r.synthesize(table.ID, columns, count, &seq)
		if err != nil {
			return r.abort(table.ID, batch, totalBatches, err)
		}
		result, err := r.store.CreateRowsBatch(ctx, tabular.BatchRequest{
			TableID:      table.ID,
			Rows:         rows,
			BatchNumber:  batch,
			TotalBatches: totalBatches,
		})
		if err != nil {
			return r.abort(table.ID, batch, totalBatches, err)
		}
		if err := r.writeCells(ctx, writes); err != nil {
			return r.abort(table.ID, batch, totalBatches, err)
		}
		rowsCreated += result.RowsCreated
		if batch%r.conf.ProgressCadence == 0 || batch == totalBatches {
			run.progress <- tabular.Progress{
				Running:            batch != totalBatches,
				BatchNumber:        batch,
				TotalBatches:       totalBatches,
				RowsCreatedInBatch: result.RowsCreated,
				RowsCreated:        rowsCreated,
			}
			r.conf.Logger.Log(logging.InfoLevel, "populate %s: batch %d/%d done, %d rows so far", table.ID, batch, totalBatches, rowsCreated)
		}
		if batch != totalBatches {
			select {
			case <-ctx.Done():
				return r.abort(table.ID, batch+1, totalBatches, ctx.Err())
			case <-time.After(r.conf.BatchPause):
			}
		}
	}
	if r.coord != nil {
		if err := r.coord.FinishPopulate(ctx, table.ID); err != nil {
			return err
		}
	}
	return nil
}

// abort stops the run at the given batch, restores the coordinator's pre-run
// snapshot and reports which batch failed. Batches committed before this one
// stay committed.
func (r *Runner) abort(tableID string, batch int, totalBatches int, cause error) error {
	var err error = errors.BatchFailedError{
		BatchNumber:  batch,
		TotalBatches: totalBatches,
		Cause:        cause,
	}
	r.conf.Logger.Log(logging.WarnLevel, "populate aborted: %v", err)
	if r.coord != nil {
		if abortErr := r.coord.AbortPopulate(tableID); abortErr != nil {
			err = multierror.Append(err, abortErr)
		}
	}
	return err
}

// synthesize builds count rows with client-generated identities and one
// generated cell per column. Client IDs are legal here only because the
// single-flight guard gives this run exclusive write access to the table.
func (r *Runner) synthesize(tableID string, columns []tabular.Column, count int, seq *int) ([]tabular.Row, []tabular.CellWrite, error) {
	rows := make([]tabular.Row, count)
	writes := make([]tabular.CellWrite, 0, count*len(columns))
	for i := 0; i < count; i++ {
		id, err := uuid.NewV4()
		if err != nil {
			return nil, nil, err
		}
		rows[i] = tabular.Row{ID: id.String(), TableID: tableID}
		*seq++
		for _, col := range columns {
			writes = append(writes, tabular.CellWrite{
				RowID:    rows[i].ID,
				ColumnID: col.ID,
				Value:    generateValue(col, *seq),
			})
		}
	}
	return rows, writes, nil
}

// writeCells applies cell writes in sub-chunks bounded by CellChunkSize, to
// keep individual store requests under payload limits
func (r *Runner) writeCells(ctx context.Context, writes []tabular.CellWrite) error {
	for start := 0; start < len(writes); start += r.conf.CellChunkSize {
		end := start + r.conf.CellChunkSize
		if end > len(writes) {
			end = len(writes)
		}
		if err := r.store.UpdateCells(ctx, writes[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func generateValue(col tabular.Column, seq int) tabular.CellValue {
	if col.Kind == tabular.ColumnKindNumber {
		return tabular.Text(strconv.Itoa(seq))
	}
	return tabular.Text(fmt.Sprintf("%s %d", col.Name, seq))
}
