package uart

import (
	"io"
	"sync"
)

// queue is an unbounded byte FIFO with blocking reads.
type queue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	data   []byte
	closed bool
}

func newQueue() *queue {
	q := &queue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) read(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.data) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.data) == 0 {
		return 0, io.EOF
	}
	n := copy(p, q.data)
	q.data = q.data[n:]
	return n, nil
}

func (q *queue) write(p []byte) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return 0, io.ErrClosedPipe
	}
	q.data = append(q.data, p...)
	q.cond.Broadcast()
	return len(p), nil
}

func (q *queue) close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// loopbackPort is one end of a Loopback pair.
type loopbackPort struct {
	rx, tx *queue
}

func (p *loopbackPort) Read(b []byte) (int, error)  { return p.rx.read(b) }
func (p *loopbackPort) Write(b []byte) (int, error) { return p.tx.write(b) }

// Close closes both directions; the peer reads EOF once drained.
func (p *loopbackPort) Close() error {
	p.rx.close()
	p.tx.close()
	return nil
}

// Loopback returns two connected in-memory ports. Bytes written to one are
// read from the other. Writes never block.
func Loopback() (Port, Port) {
	ab, ba := newQueue(), newQueue()
	return &loopbackPort{rx: ba, tx: ab}, &loopbackPort{rx: ab, tx: ba}
}
