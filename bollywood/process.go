package bollywood

import (
	"runtime/debug"
	"sync"
)

// process represents the running instance of an actor.
type process struct {
	engine   *Engine
	pid      *PID
	props    *Props
	stopCh   chan struct{} // Closed to ask the actor to stop
	stopOnce sync.Once
}

func newProcess(engine *Engine, pid *PID, props *Props) *process {
	return &process{
		engine: engine,
		pid:    pid,
		props:  props,
		stopCh: make(chan struct{}),
	}
}

// stop closes the stop channel exactly once.
func (p *process) stop() {
	p.stopOnce.Do(func() { close(p.stopCh) })
}

// run hosts the actor until its Run method returns or panics.
func (p *process) run() {
	// Remove from engine after everything else, including panic recovery
	defer p.engine.remove(p.pid)

	defer func() {
		if r := recover(); r != nil {
			p.engine.logger.Error("actor panicked",
				"pid", p.pid.String(),
				"panic", r,
				"stack", string(debug.Stack()))
			p.stop()
		}
	}()

	actor := p.props.Produce()
	if actor == nil {
		panic("bollywood: producer returned nil actor")
	}

	actor.Run(&context{
		engine: p.engine,
		self:   p.pid,
		done:   p.stopCh,
	})
}
