package recorder

import "sync"

// PublishFunc receives every magnitude vector the session publishes. It runs
// on its own goroutine, never on the capture goroutine.
type PublishFunc func(magnitudes []float64)

// publisher hands vectors from the capture goroutine to a single consumer
// goroutine through a one slot channel. An unconsumed vector is replaced by
// the newer one, so a slow consumer only ever sees the latest value.
type publisher struct {
	slot chan []float64
	quit chan struct{}
	done chan struct{}

	quitOnce sync.Once
}

func newPublisher(fn PublishFunc) *publisher {
	p := &publisher{
		slot: make(chan []float64, 1),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}

	go p.run(fn)

	return p
}

func (p *publisher) run(fn PublishFunc) {
	defer close(p.done)

	for {
		select {
		case <-p.quit:
			return
		case vec := <-p.slot:
			if fn != nil {
				fn(vec)
			}
		}
	}
}

// offer places vec in the slot without blocking. It reports whether an
// unconsumed vector was dropped to make room. Only one goroutine may offer.
func (p *publisher) offer(vec []float64) (dropped bool) {
	for {
		select {
		case p.slot <- vec:
			return dropped
		default:
		}

		select {
		case <-p.slot:
			dropped = true
		default:
		}
	}
}

// stop tells the consumer to exit. done is closed once it has.
func (p *publisher) stop() {
	p.quitOnce.Do(func() {
		close(p.quit)
	})
}
