package bollywood

import (
	stdcontext "context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrEngineStopping is returned when spawning on an engine that is shutting down.
	ErrEngineStopping = errors.New("bollywood: engine is stopping")
	// ErrShutdownTimeout is returned when actors did not terminate within the shutdown deadline.
	ErrShutdownTimeout = errors.New("bollywood: shutdown timed out")
)

// drainPollInterval is how often Wait re-checks the number of live actors.
const drainPollInterval = 5 * time.Millisecond

// Engine manages the lifecycle of actors, one goroutine per actor.
type Engine struct {
	pidCounter uint64
	actors     map[string]*process
	mu         sync.RWMutex // Protects the actors map
	stopping   atomic.Bool  // Indicates if the engine is shutting down
	logger     *slog.Logger
}

// NewEngine creates a new actor engine. A nil logger falls back to slog.Default().
func NewEngine(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		actors: make(map[string]*process),
		logger: logger,
	}
}

// nextPID generates a unique process ID.
func (e *Engine) nextPID() *PID {
	id := atomic.AddUint64(&e.pidCounter, 1)
	return &PID{ID: fmt.Sprintf("actor-%d", id)}
}

// Spawn creates and starts a new actor based on the provided Props.
// It returns the PID of the newly created actor.
func (e *Engine) Spawn(props *Props) (*PID, error) {
	if e.stopping.Load() {
		return nil, ErrEngineStopping
	}

	pid := e.nextPID()
	proc := newProcess(e, pid, props)

	e.mu.Lock()
	e.actors[pid.ID] = proc
	e.mu.Unlock()

	go proc.run()

	return pid, nil
}

// Stop closes the Done channel of the actor identified by pid.
// It does not wait for the actor to return.
func (e *Engine) Stop(pid *PID) {
	if pid == nil {
		return
	}
	e.mu.RLock()
	proc, ok := e.actors[pid.ID]
	e.mu.RUnlock()

	if ok {
		proc.stop()
	}
}

// Len reports how many actors are still running.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.actors)
}

// remove removes an actor process from the engine's tracking.
func (e *Engine) remove(pid *PID) {
	e.mu.Lock()
	delete(e.actors, pid.ID)
	e.mu.Unlock()
}

// Wait blocks until every actor has terminated or ctx is done.
func (e *Engine) Wait(ctx stdcontext.Context) error {
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()
	for {
		if e.Len() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Shutdown stops all actors and waits for them to terminate.
// No new actors can be spawned afterwards.
func (e *Engine) Shutdown(timeout time.Duration) error {
	if !e.stopping.CompareAndSwap(false, true) {
		return nil
	}

	e.mu.RLock()
	toStop := make([]*process, 0, len(e.actors))
	for _, proc := range e.actors {
		toStop = append(toStop, proc)
	}
	e.mu.RUnlock()

	e.logger.Debug("engine shutdown initiated", "actors", len(toStop))
	for _, proc := range toStop {
		proc.stop()
	}

	ctx, cancel := stdcontext.WithTimeout(stdcontext.Background(), timeout)
	defer cancel()
	if err := e.Wait(ctx); err != nil {
		remaining := e.Len()
		e.logger.Warn("engine shutdown timeout", "remaining", remaining)
		return fmt.Errorf("%w: %d actors still running", ErrShutdownTimeout, remaining)
	}
	e.logger.Debug("engine shutdown complete")
	return nil
}
