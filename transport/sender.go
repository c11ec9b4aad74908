package transport

import (
	"errors"
	"sync"

	"github.com/eapache/queue"

	"github.com/gogpu/relay/frame"
)

// ErrSenderClosed is returned by Enqueue after Close, or after a send
// failure has shut the sender down.
var ErrSenderClosed = errors.New("transport: sender closed")

// Sender queues frames for a channel and drains them on one goroutine,
// in order. Enqueue transfers payload ownership to the sender; the
// producer must not touch the pixels again until the frame has been
// written (Close returning nil means every accepted frame was).
//
// A send failure stops the sender: the queued frames are dropped, the
// error is retained, and all later Enqueue calls fail.
type Sender struct {
	ch Channel

	mu     sync.Mutex
	cond   *sync.Cond
	q      *queue.Queue
	closed bool
	err    error

	done chan struct{}
}

// NewSender starts a sender draining onto ch.
func NewSender(ch Channel) *Sender {
	s := &Sender{
		ch:   ch,
		q:    queue.New(),
		done: make(chan struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	go s.run()
	return s
}

// Enqueue hands d to the sender. It returns immediately; the frame is
// written in enqueue order by the drain goroutine.
func (s *Sender) Enqueue(d *frame.Descriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		if s.err != nil {
			return s.err
		}
		return ErrSenderClosed
	}
	s.q.Add(d)
	s.cond.Signal()
	return nil
}

// Pending returns the number of frames waiting to be written.
func (s *Sender) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.q.Length()
}

// Close stops accepting frames, waits for the queue to drain, and
// returns the first send error, if any. Close does not close the
// underlying channel.
func (s *Sender) Close() error {
	s.mu.Lock()
	s.closed = true
	s.cond.Signal()
	s.mu.Unlock()

	<-s.done

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Err returns the sender's terminal error, if one has occurred.
func (s *Sender) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Sender) run() {
	defer close(s.done)
	for {
		s.mu.Lock()
		for s.q.Length() == 0 && !s.closed {
			s.cond.Wait()
		}
		if s.q.Length() == 0 {
			// Closed and drained.
			s.mu.Unlock()
			return
		}
		d := s.q.Remove().(*frame.Descriptor)
		s.mu.Unlock()

		if err := SendFrame(s.ch, d); err != nil {
			s.mu.Lock()
			s.err = err
			s.closed = true
			// Drop whatever is still queued; the channel is broken.
			for s.q.Length() > 0 {
				s.q.Remove()
			}
			s.mu.Unlock()
			return
		}
	}
}
