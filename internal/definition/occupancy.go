package definition

import (
	"errors"
	"sync"
)

// ErrOccupancyUnderflow reports a release without a matching reservation. It
// indicates a bookkeeping bug; the count is clamped at zero.
var ErrOccupancyUnderflow = errors.New("definition: voice occupancy underflow")

// Occupancy counts, per voice channel, the text-to-speech requests that are
// queued or playing and therefore need the bot to stay connected.
//
// The zero value is not usable; create instances with [NewOccupancy].
type Occupancy struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewOccupancy returns an empty tracker.
func NewOccupancy() *Occupancy {
	return &Occupancy{counts: make(map[string]int)}
}

// Increment reserves voiceChannelID once and returns the new count.
func (o *Occupancy) Increment(voiceChannelID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.counts[voiceChannelID]++
	return o.counts[voiceChannelID]
}

// Decrement releases one reservation and returns the remaining count.
func (o *Occupancy) Decrement(voiceChannelID string) (int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	n, ok := o.counts[voiceChannelID]
	if !ok || n <= 0 {
		delete(o.counts, voiceChannelID)
		return 0, ErrOccupancyUnderflow
	}
	n--
	if n == 0 {
		delete(o.counts, voiceChannelID)
	} else {
		o.counts[voiceChannelID] = n
	}
	return n, nil
}

// IsZero reports whether no request holds voiceChannelID.
func (o *Occupancy) IsZero(voiceChannelID string) bool {
	return o.Count(voiceChannelID) == 0
}

// Count returns the current number of reservations on voiceChannelID.
func (o *Occupancy) Count(voiceChannelID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts[voiceChannelID]
}
