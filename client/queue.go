package client

import (
	"context"
	"errors"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/papercomputeco/loom/pkg/llm"
	"github.com/papercomputeco/loom/provider"
)

// ErrClosed is reported for requests enqueued after the client shut down and
// for requests still queued when it does.
var ErrClosed = errors.New("client closed")

type entryKind int

const (
	kindChat entryKind = iota
	kindGenerate
	kindStream
)

func (k entryKind) String() string {
	switch k {
	case kindChat:
		return "chat"
	case kindGenerate:
		return "generate"
	case kindStream:
		return "stream"
	}
	return "unknown"
}

// entry is one queued request plus its completion handle. Requests are never
// mutated after enqueue.
type entry struct {
	kind     entryKind
	ctx      context.Context
	messages []llm.Message
	prompt   string
	opts     *llm.Options
	index    uint64

	// stream is the caller's handle for kindStream entries.
	stream *pendingStream

	// done closes when a single-shot entry completes.
	done   chan struct{}
	result provider.Result
	err    error
}

func (e *entry) complete(res provider.Result, err error) {
	e.result = res
	e.err = err
	close(e.done)
}

// queue is the single-flight FIFO serializer: at most one entry executes at
// a time, in strict arrival order, drained by one worker goroutine in an
// explicit loop. Enqueue never blocks the caller.
type queue struct {
	logger   *zap.Logger
	dispatch func(*entry)

	mu      sync.Mutex
	entries []*entry
	closed  bool

	wake chan struct{}
	stop chan struct{}
	wg   sync.WaitGroup
}

func newQueue(dispatch func(*entry), logger *zap.Logger) *queue {
	q := &queue{
		logger:   logger,
		dispatch: dispatch,
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
	}
	q.wg.Add(1)
	go q.worker()
	return q
}

// enqueue appends an entry and returns immediately. False means the queue is
// closed and the entry was not accepted.
func (q *queue) enqueue(e *entry) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return false
	}
	q.entries = append(q.entries, e)
	depth := len(q.entries)
	q.mu.Unlock()

	q.logger.Debug("request enqueued",
		zap.Uint64("index", e.index),
		zap.Stringer("kind", e.kind),
		zap.Int("queue_depth", depth),
	)

	select {
	case q.wake <- struct{}{}:
	default:
	}
	return true
}

func (q *queue) pop() *entry {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) == 0 {
		return nil
	}
	e := q.entries[0]
	q.entries = q.entries[1:]
	return e
}

func (q *queue) worker() {
	defer q.wg.Done()
	for {
		e := q.pop()
		if e == nil {
			select {
			case <-q.wake:
				continue
			case <-q.stop:
				return
			}
		}
		// dispatch blocks until the entry has fully completed, failed, or
		// been cancelled; one entry's failure never aborts the rest.
		q.dispatch(e)
	}
}

// close stops the worker after its current entry and fails everything still
// queued. The entries' own handles report the failure.
func (q *queue) close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	orphaned := q.entries
	q.entries = nil
	q.mu.Unlock()

	close(q.stop)
	q.wg.Wait()

	for _, e := range orphaned {
		if e.kind == kindStream {
			e.stream.fail(ErrClosed)
		} else {
			e.complete(provider.Result{}, ErrClosed)
		}
	}
}

// pendingStream is the stream handle returned to a caller before its entry
// reaches the head of the queue. Recv blocks until the serializer dispatches
// the entry and the transport opens; closing it beforehand cancels the entry
// without ever touching the network.
type pendingStream struct {
	ready      chan struct{}
	readyOnce  sync.Once
	finished   chan struct{}
	finishOnce sync.Once

	mu     sync.Mutex
	inner  provider.Stream
	err    error
	closed bool
}

func newPendingStream() *pendingStream {
	return &pendingStream{
		ready:    make(chan struct{}),
		finished: make(chan struct{}),
	}
}

func (s *pendingStream) settle() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// finish marks the entry complete so the serializer can advance.
func (s *pendingStream) finish() {
	s.finishOnce.Do(func() { close(s.finished) })
}

// bind attaches the opened transport stream. If the handle was closed while
// the transport was opening, the stream is torn down instead of attached;
// Close already settled and finished the handle in that case.
func (s *pendingStream) bind(inner provider.Stream) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		inner.Close()
		return
	}
	s.inner = inner
	s.mu.Unlock()
	s.settle()
}

// fail settles the handle with an error instead of a stream.
func (s *pendingStream) fail(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.settle()
	s.finish()
}

func (s *pendingStream) Recv() (llm.StreamChunk, error) {
	<-s.ready

	s.mu.Lock()
	inner := s.inner
	err := s.err
	closed := s.closed
	s.mu.Unlock()

	if closed {
		return llm.StreamChunk{}, io.EOF
	}
	if err != nil {
		// A cancelled entry ends the iteration cleanly.
		if errors.Is(err, context.Canceled) {
			return llm.StreamChunk{}, io.EOF
		}
		return llm.StreamChunk{}, err
	}

	chunk, rerr := inner.Recv()
	if rerr != nil {
		s.finish()
		return llm.StreamChunk{}, rerr
	}
	if chunk.Done {
		// Terminal chunk delivered: the queue may advance without waiting
		// for the consumer's trailing Recv.
		s.finish()
	}
	return chunk, nil
}

// Close stops the stream early. Idempotent; before dispatch it cancels the
// queued entry, after dispatch it tears down the transport.
func (s *pendingStream) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	inner := s.inner
	s.mu.Unlock()

	if inner != nil {
		inner.Close()
	}
	s.settle()
	s.finish()
	return nil
}

func (s *pendingStream) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
