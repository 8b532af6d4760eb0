package pwa

import (
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type opcode int

const (
	opCompute opcode = iota
	opStop
)

// message is sent from the pool to one worker.
type message struct {
	op opcode
	v  []complex128
}

// partial is a worker's data-term contribution for its shard.
type partial struct {
	shard int
	sum   float64
	err   error
}

// Pool splits the events of a rhoAA tensor into contiguous shards and
// evaluates the likelihood data term with one worker per shard.
// Workers only read the tensor.
type Pool struct {
	rho      *RhoAA
	shards   [][2]int
	inbox    []chan message
	results  chan partial
	deadline time.Duration
	compute  shardFunc
	grp      errgroup.Group

	mu     sync.Mutex
	closed bool
	broken error
}

// shardFunc evaluates the data term of events [beg, end) into buf.
type shardFunc func(buf []float64, v []complex128, rho *RhoAA, beg, end int) (float64, error)

// NewPool starts n workers over rho. n is capped to the number of events.
func NewPool(rho *RhoAA, n int, deadline time.Duration) (*Pool, error) {
	return newPool(rho, n, deadline, shardDataTerm)
}

func newPool(rho *RhoAA, n int, deadline time.Duration, compute shardFunc) (*Pool, error) {
	if n <= 0 {
		return nil, newError(CodeInvalidInput, "invalid number of workers %d", n)
	}
	nevts := rho.NumEvents()
	if n > nevts {
		n = nevts
	}

	p := &Pool{
		rho:      rho,
		shards:   make([][2]int, n),
		inbox:    make([]chan message, n),
		results:  make(chan partial, n),
		deadline: deadline,
		compute:  compute,
	}

	for i := range p.shards {
		beg := i * nevts / n
		end := (i + 1) * nevts / n
		p.shards[i] = [2]int{beg, end}
		p.inbox[i] = make(chan message, 1)
	}

	for i := range p.shards {
		shard := i
		p.grp.Go(func() error {
			p.work(shard)
			return nil
		})
	}

	return p, nil
}

func (p *Pool) NumWorkers() int { return len(p.shards) }

func (p *Pool) work(shard int) {
	beg, end := p.shards[shard][0], p.shards[shard][1]
	buf := make([]float64, end-beg)
	for msg := range p.inbox[shard] {
		switch msg.op {
		case opStop:
			return
		case opCompute:
			sum, err := p.compute(buf, msg.v, p.rho, beg, end)
			if err != nil {
				err = Wrapf(err, "shard %d [%d, %d)", shard, beg, end)
			}
			p.results <- partial{shard: shard, sum: sum, err: err}
		}
	}
}

// DataTerm returns -Σ log(a0) over all events. Partial sums are added in
// shard order so the result does not depend on worker scheduling.
func (p *Pool) DataTerm(v []complex128) (float64, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.broken != nil {
		return 0, p.broken
	}
	if p.closed {
		return 0, newError(CodeResource, "worker pool is closed")
	}

	for _, in := range p.inbox {
		in <- message{op: opCompute, v: v}
	}

	var timeout <-chan time.Time
	if p.deadline > 0 {
		timer := time.NewTimer(p.deadline)
		defer timer.Stop()
		timeout = timer.C
	}

	sums := make([]float64, len(p.shards))
	errs := make([]error, len(p.shards))
	seen := make([]bool, len(p.shards))
	for n := 0; n < len(p.shards); n++ {
		select {
		case res := <-p.results:
			sums[res.shard] = res.sum
			errs[res.shard] = res.err
			seen[res.shard] = true
		case <-timeout:
			for i, ok := range seen {
				if !ok {
					p.broken = newError(CodeResource,
						"worker for shard %d [%d, %d) did not report within %v",
						i, p.shards[i][0], p.shards[i][1], p.deadline,
					)
					break
				}
			}
			return 0, p.broken
		}
	}

	total := 0.0
	for i, sum := range sums {
		if errs[i] != nil {
			return 0, errs[i]
		}
		total += sum
	}
	return total, nil
}

// Close sends a stop message to every worker and waits for all of them
// to exit. A pool broken by a hung worker is not waited for.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return p.broken
	}
	p.closed = true

	if p.broken != nil {
		for _, in := range p.inbox {
			select {
			case in <- message{op: opStop}:
			default:
			}
		}
		return p.broken
	}

	for _, in := range p.inbox {
		in <- message{op: opStop}
	}
	return p.grp.Wait()
}
