package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/kostyay/netpulse/internal/output"
)

// ErrClosed is returned by Emit once the outbox has been closed.
var ErrClosed = errors.New("session closed")

// DefaultQueueLimit bounds the number of frames waiting to be written.
const DefaultQueueLimit = 256

// Writer writes one complete text frame.
type Writer interface {
	WriteMessage(ctx context.Context, data []byte) error
}

// frame is one encoded message. Periodic samples (ping, speed) are
// superseded by the next sample and may be dropped under backpressure.
type frame struct {
	data   []byte
	sample bool
}

// Outbox serializes messages from many producers onto one connection.
// Frames are written in the order Emit accepted them by a single writer
// goroutine started with Run.
//
// When the queue is full the oldest sample frame is dropped. Error and
// networkInfo frames are only dropped when the queue holds nothing else.
type Outbox struct {
	writer Writer
	limit  int
	logger *log.Entry

	mu      sync.Mutex
	queue   []frame
	closed  bool
	dropped int
	wake    chan struct{}
	done    chan struct{}
}

// NewOutbox creates an outbox writing to w.
func NewOutbox(w Writer, limit int, logger *log.Entry) *Outbox {
	if limit <= 0 {
		limit = DefaultQueueLimit
	}
	return &Outbox{
		writer: w,
		limit:  limit,
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Emit encodes msg as JSON and queues it. After Close it returns ErrClosed.
func (o *Outbox) Emit(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %T: %w", msg, err)
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if len(o.queue) >= o.limit {
		o.dropOne()
	}
	o.queue = append(o.queue, frame{data: data, sample: isSample(msg)})
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
	return nil
}

// dropOne removes the oldest sample frame, or the oldest frame when the
// queue holds no samples. Callers hold mu.
func (o *Outbox) dropOne() {
	i := 0
	for j, f := range o.queue {
		if f.sample {
			i = j
			break
		}
	}
	o.queue = append(o.queue[:i], o.queue[i+1:]...)
	o.dropped++
}

func isSample(msg any) bool {
	switch msg.(type) {
	case output.PingMessage, output.SpeedMessage:
		return true
	}
	return false
}

// Run writes queued frames until the outbox is closed, ctx is cancelled or
// a write fails. A failed write closes the outbox.
func (o *Outbox) Run(ctx context.Context) {
	defer close(o.done)

	for {
		batch, dropped, ok := o.take()
		if !ok {
			return
		}
		if dropped > 0 {
			o.logger.WithField("dropped", dropped).Warn("client too slow, dropped messages")
		}

		for _, f := range batch {
			if err := o.writer.WriteMessage(ctx, f.data); err != nil {
				o.logger.WithError(err).Debug("write failed, closing outbox")
				o.Close()
				return
			}
		}

		if len(batch) > 0 {
			continue
		}
		select {
		case <-o.wake:
		case <-ctx.Done():
			o.Close()
			return
		}
	}
}

// take removes every queued frame. ok is false once closed.
func (o *Outbox) take() (batch []frame, dropped int, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil, 0, false
	}
	batch, o.queue = o.queue, nil
	dropped, o.dropped = o.dropped, 0
	return batch, dropped, true
}

// Close stops accepting messages. Frames not yet written are discarded.
// It is idempotent.
func (o *Outbox) Close() {
	o.mu.Lock()
	o.closed = true
	o.queue = nil
	o.mu.Unlock()

	select {
	case o.wake <- struct{}{}:
	default:
	}
}

// Closed reports whether Close has been called.
func (o *Outbox) Closed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// Done is closed when the writer goroutine exits.
func (o *Outbox) Done() <-chan struct{} {
	return o.done
}
