package ingest

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/pgvector-embed/internal/store"
)

// Result is what a finished run knows about itself. Every error in it has
// already been logged.
type Result struct {
	State       State
	FailedStage Stage

	// FetchErr is set when the embedding call failed and the run continued
	// with the empty sentinel.
	FetchErr  error
	Model     string
	Vectors   int
	Dimension int
	// DimensionErr is set when the dimension string did not parse and 0 was used.
	DimensionErr error

	TableErr error
	Insert   store.InsertResult
	CloseErr error

	// Err is the error that moved the run to StateFailed.
	Err error
}

// Handle tracks one in-flight run. It cannot cancel the persistence unit.
type Handle struct {
	ID    uuid.UUID
	Table string

	state  atomic.Int32
	done   chan struct{}
	once   sync.Once
	result Result
	logger *slog.Logger

	// runLogger carries the run id only.
	runLogger *slog.Logger
}

func newHandle(table string, logger *slog.Logger) *Handle {
	id := uuid.New()
	runLogger := logger.With("run", id.String())
	return &Handle{
		ID:        id,
		Table:     table,
		done:      make(chan struct{}),
		logger:    runLogger.With("table", table),
		runLogger: runLogger,
	}
}

// State returns the current state.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Done is closed once the run reaches Done or Failed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the run finishes and returns its result.
func (h *Handle) Wait() Result {
	<-h.done
	return h.result
}

// Result returns the result if the run has finished.
func (h *Handle) Result() (Result, bool) {
	select {
	case <-h.done:
		return h.result, true
	default:
		return Result{}, false
	}
}

func (h *Handle) transition(to State) {
	from := State(h.state.Swap(int32(to)))
	h.logger.Debug("run state", "from", from.String(), "to", to.String())
}

func (h *Handle) finish(res Result) {
	h.once.Do(func() {
		h.result = res
		h.transition(res.State)
		close(h.done)
	})
}
