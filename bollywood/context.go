package bollywood

// Context provides information and capabilities to a running Actor.
type Context interface {
	// Engine returns the Actor Engine managing this actor.
	Engine() *Engine
	// Self returns the PID of the running actor.
	Self() *PID
	// Done is closed once the engine asked the actor to stop.
	// Actors that decide on their own when to finish may ignore it.
	Done() <-chan struct{}
}

// context implements the Context interface.
type context struct {
	engine *Engine
	self   *PID
	done   <-chan struct{}
}

func (c *context) Engine() *Engine       { return c.engine }
func (c *context) Self() *PID            { return c.self }
func (c *context) Done() <-chan struct{} { return c.done }
