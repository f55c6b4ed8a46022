package sgengine

import "github.com/tidewave-audio/sgengine/sound"

// submitRequest is one SubmitGraph call waiting on the dispatcher.
type submitRequest struct {
	graph *sound.Graph
	resp  chan error
}

// dispatcher runs one goroutine that applies submitRequests strictly in
// arrival order, so two control-thread goroutines calling SubmitGraph
// concurrently never race on the engine's compiler or fingerprint state.
type dispatcher struct {
	reqs chan submitRequest
	done chan struct{}
}

func newDispatcher(apply func(*sound.Graph) error) *dispatcher {
	d := &dispatcher{reqs: make(chan submitRequest), done: make(chan struct{})}
	go d.run(apply)
	return d
}

func (d *dispatcher) run(apply func(*sound.Graph) error) {
	for {
		select {
		case req := <-d.reqs:
			req.resp <- apply(req.graph)
		case <-d.done:
			return
		}
	}
}

// submit blocks until apply has run for g, returning whatever error it
// produced.
func (d *dispatcher) submit(g *sound.Graph) error {
	resp := make(chan error, 1)
	d.reqs <- submitRequest{graph: g, resp: resp}
	return <-resp
}

func (d *dispatcher) close() {
	close(d.done)
}
