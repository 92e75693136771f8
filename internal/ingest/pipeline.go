package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/MikeSquared-Agency/pgvector-embed/internal/config"
	"github.com/MikeSquared-Agency/pgvector-embed/internal/embeddings"
	"github.com/MikeSquared-Agency/pgvector-embed/internal/store"
)

var (
	// ErrFetcherRequired is returned by NewPipeline without an embedding backend.
	ErrFetcherRequired = errors.New("embedding fetcher required")
	// ErrDialerRequired is returned by NewPipeline without a database dialer.
	ErrDialerRequired = errors.New("database dialer required")
)

// Dialer opens the connection owned by one persistence unit.
type Dialer func(ctx context.Context, cfg config.VectorDB) (store.Conn, error)

// Notifier is told about every finished run.
type Notifier interface {
	IngestCompleted(ctx context.Context, s Summary) error
}

// Summary describes a finished run for notifiers.
type Summary struct {
	RunID       string
	Table       string
	Model       string
	Inputs      int
	Written     int
	Failed      int
	State       State
	FailedStage Stage
	Metadata    string
}

// Params are the already-resolved inputs of one run.
type Params struct {
	Model     string
	Inputs    []string
	Metadata  *string
	Table     string
	Dimension string
	DB        config.VectorDB
}

// Pipeline runs ingestions. Network fetches happen on the caller's goroutine;
// database work happens on a dedicated ants pool so slow or hanging database
// calls never occupy the caller.
type Pipeline struct {
	fetcher  embeddings.Fetcher
	dial     Dialer
	metric   store.Metric
	pool     *ants.Pool
	notifier Notifier
	wg       sync.WaitGroup
	logger   *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize caps the number of concurrent persistence units. A run that
// finds every unit busy fails to schedule with ants.ErrPoolOverload instead of
// waiting. size below 1 means no cap, which is the default.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		pool, err := newPool(size)
		if err != nil {
			return err
		}
		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		return nil
	}
}

func newPool(size int) (*ants.Pool, error) {
	if size < 1 {
		return ants.NewPool(-1)
	}
	return ants.NewPool(size, ants.WithNonblocking(true))
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithMetric sets the distance metric of the vector store.
func WithMetric(m store.Metric) Option {
	return func(p *Pipeline) error {
		p.metric = m
		return nil
	}
}

// WithNotifier publishes a Summary after every run. Notification errors are logged.
func WithNotifier(n Notifier) Option {
	return func(p *Pipeline) error {
		p.notifier = n
		return nil
	}
}

// NewPipeline creates a pipeline fetching with fetcher and persisting through
// connections opened by dial.
func NewPipeline(fetcher embeddings.Fetcher, dial Dialer, opts ...Option) (*Pipeline, error) {
	if fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if dial == nil {
		return nil, ErrDialerRequired
	}

	pool, err := newPool(0)
	if err != nil {
		return nil, fmt.Errorf("creating persistence pool: %w", err)
	}

	p := &Pipeline{
		fetcher: fetcher,
		dial:    dial,
		metric:  store.MetricL2,
		pool:    pool,
		logger:  slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.pool.Release()
			return nil, err
		}
	}
	return p, nil
}

// Run builds the shared request from params and starts a run. See RunCell.
func (p *Pipeline) Run(ctx context.Context, params Params) (*Handle, error) {
	cell := embeddings.NewCell(params.Model, params.Inputs, params.Metadata)
	return p.RunCell(ctx, cell, params)
}

// RunCell fetches embeddings for the request in cell, blocking until the
// embedding call returns, then schedules the persistence unit and returns its
// handle. params.Model, Inputs and Metadata are ignored; the cell is the
// request. The only returned error is a failure to schedule the unit.
//
// The persistence unit outlives ctx cancellation; ctx only bounds the fetch.
func (p *Pipeline) RunCell(ctx context.Context, cell *embeddings.Cell, params Params) (*Handle, error) {
	h := newHandle(params.Table, p.logger)
	log := h.logger
	log.Debug("starting ingestion run", "backend", p.fetcher.Name())

	h.transition(StateFetching)
	resp, res, ok := p.fetch(ctx, cell, log)
	if !ok {
		p.complete(ctx, h, cell, res)
		return h, nil
	}
	h.transition(StateFetched)

	res.Dimension, res.DimensionErr = ParseDimension(params.Dimension)
	if res.DimensionErr != nil {
		log.Error("failed to parse dimension, using 0", "dimension", params.Dimension, "error", res.DimensionErr)
	}

	unitCtx := context.WithoutCancel(ctx)
	db := params.DB

	h.transition(StatePersisting)
	p.wg.Add(1)
	err := p.pool.Submit(func() {
		defer p.wg.Done()
		p.complete(unitCtx, h, cell, p.persist(unitCtx, h, cell, resp, params.Table, db, res))
	})
	if err != nil {
		p.wg.Done()
		res.State, res.FailedStage = StateFailed, StagePersist
		res.Err = fmt.Errorf("spawning persistence unit: %w", err)
		log.Error("failed to start persistence unit", "error", err)
		h.finish(res)
		return nil, res.Err
	}

	log.Debug("persistence unit scheduled")
	return h, nil
}

// fetch calls the backend with a read view of cell. Backend errors become the
// empty sentinel; ok is false only when the cell cannot be read.
func (p *Pipeline) fetch(ctx context.Context, cell *embeddings.Cell, log *slog.Logger) (*embeddings.EmbedResponse, Result, bool) {
	var res Result

	view, release, err := cell.View()
	if err != nil {
		log.Error("failed to read embedding request", "error", err)
		res.State, res.FailedStage, res.Err = StateFailed, StageFetch, err
		return nil, res, false
	}
	defer release()

	log.Debug("fetching embeddings", "model", view.Model(), "inputs", view.Len())
	resp, err := p.fetcher.Fetch(ctx, view)
	if err != nil {
		log.Error("embedding fetch failed", "backend", p.fetcher.Name(), "error", err)
		res.FetchErr = err
		resp = embeddings.EmptyResponse()
	}
	if resp == nil {
		resp = embeddings.EmptyResponse()
	}

	res.Model = resp.Model
	res.Vectors = len(resp.Embeddings)
	if err == nil && res.Vectors != view.Len() {
		log.Warn("embedding count does not match input count", "inputs", view.Len(), "embeddings", res.Vectors)
	}
	log.Debug("finished fetching embeddings", "embeddings", res.Vectors)
	return resp, res, true
}

// persist is the body of the persistence unit. The connection is closed before
// it returns on every path that opened one.
func (p *Pipeline) persist(ctx context.Context, h *Handle, cell *embeddings.Cell, resp *embeddings.EmbedResponse, table string, db config.VectorDB, res Result) (out Result) {
	log := h.logger
	defer func() {
		if r := recover(); r != nil {
			log.Error("persistence unit panicked", "panic", r)
			closeErr := out.CloseErr
			out = res
			out.CloseErr = closeErr
			out.State, out.FailedStage = StateFailed, StagePersist
			out.Err = fmt.Errorf("persistence unit panicked: %v", r)
		}
	}()

	conn, err := p.dial(ctx, db)
	if err != nil {
		log.Error("failed to connect to vector db", "db", db.String(), "error", err)
		res.State, res.FailedStage, res.Err = StateFailed, StagePersist, err
		return res
	}
	defer func() {
		if err := conn.Close(ctx); err != nil {
			log.Error("failed to close vector db connection", "error", err)
			out.CloseErr = err
		}
	}()

	view, release, err := cell.View()
	if err != nil {
		log.Error("failed to read embedding request", "error", err)
		res.State, res.FailedStage, res.Err = StateFailed, StagePersist, err
		return res
	}
	defer release()

	// The store adds the table attr to its own lines.
	vs := store.NewVectorStore(conn, p.metric, h.runLogger)

	log.Info("loading data into table", "rows", min(view.Len(), len(resp.Embeddings)))
	if err := vs.EnsureTable(ctx, table, res.Dimension); err != nil {
		log.Error("create table failed", "dimension", res.Dimension, "error", err)
		res.TableErr = err
	} else {
		log.Debug("create table successful")
	}

	res.Insert = vs.InsertRows(ctx, table, view, resp.Embeddings)
	log.Debug("load vector data finished", "written", res.Insert.Written, "failed", res.Insert.Failed)

	res.State = StateDone
	return res
}

func (p *Pipeline) complete(ctx context.Context, h *Handle, cell *embeddings.Cell, res Result) {
	h.finish(res)
	if res.State == StateFailed {
		h.logger.Error("ingestion run failed", "stage", string(res.FailedStage), "error", res.Err)
	} else {
		h.logger.Info("ingestion run finished", "written", res.Insert.Written, "failed", res.Insert.Failed)
	}

	if p.notifier == nil {
		return
	}
	s := Summary{
		RunID:       h.ID.String(),
		Table:       h.Table,
		Model:       res.Model,
		Inputs:      cell.Len(),
		Written:     res.Insert.Written,
		Failed:      res.Insert.Failed,
		State:       res.State,
		FailedStage: res.FailedStage,
	}
	if view, release, err := cell.View(); err == nil {
		s.Metadata, _ = view.Metadata()
		release()
	}
	if err := p.notifier.IngestCompleted(ctx, s); err != nil {
		h.logger.Warn("failed to publish run summary", "error", err)
	}
}

// Running returns the number of busy persistence workers.
func (p *Pipeline) Running() int {
	return p.pool.Running()
}

// Release waits for scheduled persistence units and releases the worker pool.
// The pipeline must not be used afterwards.
func (p *Pipeline) Release() {
	p.wg.Wait()
	if p.pool != nil {
		p.pool.Release()
	}
}
