package domain

import (
	"time"

	"github.com/samber/lo"
)

// DefaultHistoryLimit is the number of finished tracks kept in the history.
const DefaultHistoryLimit = 50

// Queue holds the pending tracks, the current track and a bounded history.
// It is a plain data structure: it never blocks and never performs I/O.
// Callers are responsible for serialising access.
type Queue struct {
	pending      []*Track
	current      *Track
	previous     []*Track
	historyLimit int
}

// NewQueue creates a new empty Queue whose history keeps at most historyLimit tracks.
// A non-positive limit selects DefaultHistoryLimit.
func NewQueue(historyLimit int) *Queue {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &Queue{
		pending:      make([]*Track, 0),
		previous:     make([]*Track, 0),
		historyLimit: historyLimit,
	}
}

// HistoryLimit returns the configured history capacity.
func (q *Queue) HistoryLimit() int {
	return q.historyLimit
}

// Len returns the number of pending tracks.
func (q *Queue) Len() int {
	return len(q.pending)
}

// IsEmpty returns true if there is neither a current nor a pending track.
func (q *Queue) IsEmpty() bool {
	return q.current == nil && len(q.pending) == 0
}

// Current returns the current track, or nil.
func (q *Queue) Current() *Track {
	return q.current
}

// Upcoming returns a copy of the pending tracks.
func (q *Queue) Upcoming() []*Track {
	result := make([]*Track, len(q.pending))
	copy(result, q.pending)
	return result
}

// Previous returns a copy of the history, oldest first.
func (q *Queue) Previous() []*Track {
	result := make([]*Track, len(q.previous))
	copy(result, q.previous)
	return result
}

// At returns the pending track at index, or nil if the index is out of bounds.
func (q *Queue) At(index int) *Track {
	if !q.isValidIndex(index) {
		return nil
	}
	return q.pending[index]
}

// TotalDuration returns the duration of the current track plus all pending tracks.
func (q *Queue) TotalDuration() time.Duration {
	total := lo.SumBy(q.pending, func(t *Track) time.Duration { return t.Duration })
	if q.current != nil {
		total += q.current.Duration
	}
	return total
}

// Add appends tracks to the pending list and returns the new pending length.
func (q *Queue) Add(tracks ...*Track) int {
	q.pending = append(q.pending, lo.Compact(tracks)...)
	return len(q.pending)
}

// Insert places tracks at position in the pending list.
// Out-of-range positions append. Returns the new pending length.
func (q *Queue) Insert(position int, tracks ...*Track) int {
	tracks = lo.Compact(tracks)
	if len(tracks) == 0 {
		return len(q.pending)
	}
	if position < 0 || position >= len(q.pending) {
		return q.Add(tracks...)
	}

	pending := make([]*Track, 0, len(q.pending)+len(tracks))
	pending = append(pending, q.pending[:position]...)
	pending = append(pending, tracks...)
	pending = append(pending, q.pending[position:]...)
	q.pending = pending
	return len(q.pending)
}

// Remove removes and returns the pending track at index.
// Returns nil if the index is out of bounds.
func (q *Queue) Remove(index int) *Track {
	if !q.isValidIndex(index) {
		return nil
	}
	track := q.pending[index]
	q.pending = append(q.pending[:index], q.pending[index+1:]...)
	return track
}

// Move relocates the pending track at from to position to.
// Returns false if either index is out of bounds.
func (q *Queue) Move(from, to int) bool {
	if !q.isValidIndex(from) || !q.isValidIndex(to) {
		return false
	}
	if from == to {
		return true
	}
	track := q.Remove(from)
	q.pending = append(q.pending[:to], append([]*Track{track}, q.pending[to:]...)...)
	return true
}

// Next moves the current track into the history and promotes the head of the
// pending list. Returns the new current track, or nil if nothing was pending.
func (q *Queue) Next() *Track {
	if q.current != nil {
		q.pushHistory(q.current)
	}
	if len(q.pending) == 0 {
		q.current = nil
		return nil
	}
	q.current = q.pending[0]
	q.pending = q.pending[1:]
	return q.current
}

// Back restores the most recent history entry as the current track, pushing the
// current track back to the head of the pending list.
// Returns nil and leaves the queue untouched if the history is empty.
func (q *Queue) Back() *Track {
	if len(q.previous) == 0 {
		return nil
	}
	if q.current != nil {
		q.pending = append([]*Track{q.current}, q.pending...)
	}
	last := len(q.previous) - 1
	q.current = q.previous[last]
	q.previous = q.previous[:last]
	return q.current
}

// SkipTo advances so that the pending track at index becomes current.
// Skipped tracks are recorded in the history. Returns nil if index is out of bounds.
func (q *Queue) SkipTo(index int) *Track {
	if !q.isValidIndex(index) {
		return nil
	}
	for range index {
		q.Next()
	}
	return q.Next()
}

// Shuffle randomly permutes the pending tracks. Current and history are untouched.
func (q *Queue) Shuffle() {
	lo.Shuffle(q.pending)
}

// Clear empties the pending list, the current slot and the history.
func (q *Queue) Clear() {
	q.pending = make([]*Track, 0)
	q.current = nil
	q.previous = make([]*Track, 0)
}

func (q *Queue) pushHistory(track *Track) {
	q.previous = append(q.previous, track)
	if overflow := len(q.previous) - q.historyLimit; overflow > 0 {
		q.previous = append([]*Track(nil), q.previous[overflow:]...)
	}
}

func (q *Queue) isValidIndex(index int) bool {
	return 0 <= index && index < len(q.pending)
}
