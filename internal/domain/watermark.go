package domain

import "time"

// WatermarkTracker detects novel events across successive feed snapshots.
// The watermark is the maximum event timestamp already processed; an event
// is novel iff its timestamp is strictly greater. Not safe for concurrent
// use: the poller is the single writer (cycles never overlap).
type WatermarkTracker struct {
	last time.Time
	set  bool
}

// NewWatermarkTracker returns a tracker with no watermark. The first
// snapshot it sees only initializes the watermark and reports nothing novel.
func NewWatermarkTracker() *WatermarkTracker {
	return &WatermarkTracker{}
}

// DiffAndAdvance returns the events in snapshot newer than the watermark and
// advances the watermark to the snapshot's maximum timestamp. An empty
// snapshot leaves the watermark untouched.
//
// The first call ever is the bootstrap: pre-existing events must not fire
// retroactive alerts, so novel is empty and only the watermark is set.
//
// Re-fetched events are excluded by the strict comparison, and a backfilled
// event with a new id but an old timestamp is intentionally not novel: the
// watermark, not id bookkeeping, decides.
func (w *WatermarkTracker) DiffAndAdvance(snapshot []Event) (novel []Event, bootstrap bool) {
	maxTS, ok := maxTimestamp(snapshot)

	if !w.set {
		if ok {
			w.last = maxTS
			w.set = true
		}
		return nil, true
	}

	for _, e := range snapshot {
		if e.Time.After(w.last) {
			novel = append(novel, e)
		}
	}

	if ok && maxTS.After(w.last) {
		w.last = maxTS
	}
	return novel, false
}

// Watermark returns the current watermark and whether one has been set.
func (w *WatermarkTracker) Watermark() (time.Time, bool) {
	return w.last, w.set
}

func maxTimestamp(events []Event) (time.Time, bool) {
	var maxTS time.Time
	for _, e := range events {
		if e.Time.After(maxTS) {
			maxTS = e.Time
		}
	}
	return maxTS, !maxTS.IsZero()
}
