package actor

import "sync"

// mailbox is an unbounded FIFO. put never blocks, so a coordinator can broadcast
// to every actor without waiting on any of them.
type mailbox struct {
	mu    sync.Mutex
	queue []Message
	ready chan struct{} // cap 1; a pending signal means "queue may be non-empty"
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{}, 1)}
}

func (b *mailbox) put(msg Message) {
	b.mu.Lock()
	b.queue = append(b.queue, msg)
	b.mu.Unlock()

	select {
	case b.ready <- struct{}{}:
	default:
	}
}

// take removes and returns everything queued so far.
func (b *mailbox) take() []Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	q := b.queue
	b.queue = nil
	return q
}
