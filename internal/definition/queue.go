package definition

import (
	"context"
	"errors"
	"sync"
)

var (
	// errSkipped is the cancellation cause used by Next.
	errSkipped = errors.New("definition: skipped")

	// errStopped is the cancellation cause used by Stop and Close.
	errStopped = errors.New("definition: stopped")
)

// item is a queued request together with its cancellation and voice
// reservation state.
type item struct {
	req    Request
	ctx    context.Context
	cancel context.CancelCauseFunc

	// reserved is set when the request holds a voice occupancy slot.
	reserved    bool
	releaseOnce sync.Once

	showSource bool

	// dictionaryAPIs is the channel's provider order, nil for the default.
	dictionaryAPIs []string
	autoTranslate  bool
}

// channelQueue is the FIFO backlog of one text channel. A single worker
// goroutine drains it.
type channelQueue struct {
	channelID string

	mu      sync.Mutex
	cond    *sync.Cond
	backlog []*item
	current *item

	// boundVoice is the voice channel the current item is playing in. It is
	// set only for the duration of Play.
	boundVoice string
	closed     bool
}

func newChannelQueue(channelID string) *channelQueue {
	q := &channelQueue{channelID: channelID}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// push appends it and wakes the worker. The caller guarantees the queue is
// not closed.
func (q *channelQueue) push(it *item) {
	q.mu.Lock()
	q.backlog = append(q.backlog, it)
	q.cond.Signal()
	q.mu.Unlock()
}

// take blocks until an item is available and makes it current. It returns
// false once the queue is closed.
func (q *channelQueue) take() (*item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.backlog) == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.closed {
		return nil, false
	}
	it := q.backlog[0]
	q.backlog[0] = nil
	q.backlog = q.backlog[1:]
	q.current = it
	return it, true
}

// finish clears the current item.
func (q *channelQueue) finish(it *item) {
	q.mu.Lock()
	if q.current == it {
		q.current = nil
		q.boundVoice = ""
	}
	q.mu.Unlock()
	it.cancel(nil)
}

// clear empties the backlog and cancels the current item. It returns the
// discarded items and whether anything was in flight.
func (q *channelQueue) clear(cause error) ([]*item, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	dropped := q.backlog
	q.backlog = nil
	active := q.current != nil
	if active {
		q.current.cancel(cause)
	}
	return dropped, active
}

// close clears the queue and makes the worker exit.
func (q *channelQueue) close() []*item {
	dropped, _ := q.clear(errStopped)
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	return dropped
}

// bind records that the current item is playing in voiceChannelID.
func (q *channelQueue) bind(voiceChannelID string) {
	q.mu.Lock()
	q.boundVoice = voiceChannelID
	q.mu.Unlock()
}

func (q *channelQueue) unbind() { q.bind("") }

// skip cancels the current item if it is playing in voiceChannelID.
func (q *channelQueue) skip(voiceChannelID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil || q.boundVoice != voiceChannelID {
		return false
	}
	q.current.cancel(errSkipped)
	return true
}

func (q *channelQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.backlog)
}
