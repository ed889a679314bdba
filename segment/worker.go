package segment

import (
	"context"
	"sync"
	"time"

	"glot/capture"
	"glot/log"
)

type Config struct {
	SampleRate     int
	Tick           time.Duration
	TargetInterval time.Duration
	MinSegment     time.Duration
	SilenceAfter   time.Duration
	Overlap        time.Duration
	Overflow       time.Duration // hard ceiling, normally 1.5x TargetInterval
	QueueHighMark  int

	EnergyFloor      float64
	EnergyMultiplier float64
	EnergyAlpha      float64
}

// Worker drains the capture queue on a fixed tick and decides when the
// in-progress batch becomes a Segment. Flushes hand the snapshot to emit on
// a fresh goroutine; the batch clock is reset before the handoff so a slow
// downstream never stalls accumulation.
type Worker struct {
	cfg   Config
	queue *capture.Queue
	gate  *EnergyGate
	emit  func(Segment)

	mu         sync.Mutex
	batch      []byte
	newBytes   int // bytes appended since the overlap seed
	seedDur    time.Duration
	batchStart time.Time
	lastSpeech time.Time
	flushed    uint64
	stopped    bool
}

func NewWorker(cfg Config, queue *capture.Queue, emit func(Segment)) *Worker {
	if cfg.Overflow == 0 {
		cfg.Overflow = cfg.TargetInterval * 3 / 2
	}
	return &Worker{
		cfg:   cfg,
		queue: queue,
		gate:  NewEnergyGate(cfg.EnergyFloor, cfg.EnergyMultiplier, cfg.EnergyAlpha),
		emit:  emit,
	}
}

// Start runs the tick loop until ctx is cancelled or the worker is stopped.
func (w *Worker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.cfg.Tick)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if !w.Tick(now) {
					return
				}
			}
		}
	}()
}

// Stop drains whatever is queued, performs the terminal flush if any new
// audio is pending, and returns the number of segments emitted. The stream
// ends here: any tick racing with Stop observes the stopped flag and the
// run loop exits.
func (w *Worker) Stop() uint64 {
	now := time.Now()
	w.drain(now)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	if w.newBytes > 0 {
		w.flushLocked(now, ReasonStreamEnd)
	}
	return w.flushed
}

// Tick is one worker cycle: drain, classify, evaluate flush conditions in
// priority order. Exposed for tests that drive time by hand. Returns false
// once the worker has been stopped.
func (w *Worker) Tick(now time.Time) bool {
	occupancy := w.queue.Len()
	w.drain(now)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return false
	}
	if w.batchStart.IsZero() {
		return true
	}

	batchDur := w.batchDurLocked()
	switch {
	case w.cfg.QueueHighMark > 0 && occupancy >= w.cfg.QueueHighMark:
		w.flushLocked(now, ReasonQueuePressure)
	case now.Sub(w.batchStart) >= w.cfg.TargetInterval:
		w.maybeFlushLocked(now, batchDur, ReasonRollingInterval)
	case batchDur >= w.cfg.Overflow:
		w.maybeFlushLocked(now, batchDur, ReasonOverflowProtection)
	case !w.lastSpeech.IsZero() && now.Sub(w.lastSpeech) >= w.cfg.SilenceAfter && batchDur >= w.cfg.MinSegment:
		w.flushLocked(now, ReasonSilenceTimeout)
	}
	return true
}

func (w *Worker) drain(now time.Time) {
	chunks := w.queue.DrainAll()
	if len(chunks) == 0 {
		return
	}

	speech := false
	for _, c := range chunks {
		if w.gate.Speech(c.PCM) {
			speech = true
		}
	}

	w.mu.Lock()
	if w.batchStart.IsZero() {
		w.batchStart = now
	}
	for _, c := range chunks {
		w.batch = append(w.batch, c.PCM...)
		w.newBytes += len(c.PCM)
	}
	if speech {
		w.lastSpeech = now
	}
	w.mu.Unlock()
}

// maybeFlushLocked enforces the minimum-duration floor: a sub-minimum flush
// is suppressed and the samples stay in the batch.
func (w *Worker) maybeFlushLocked(now time.Time, batchDur time.Duration, reason FlushReason) {
	if batchDur < w.cfg.MinSegment {
		return
	}
	w.flushLocked(now, reason)
}

func (w *Worker) flushLocked(now time.Time, reason FlushReason) {
	if len(w.batch) == 0 {
		return
	}

	snapshot := make([]byte, len(w.batch))
	copy(snapshot, w.batch)
	seg := Segment{
		PCM:      snapshot,
		Duration: w.batchDurLocked(),
		Reason:   reason,
		Overlap:  w.seedDur,
	}

	// Seed the next batch with the trailing overlap window, then reset the
	// clock before the async handoff.
	overlapBytes := w.bytesFor(w.cfg.Overlap)
	if reason == ReasonStreamEnd || overlapBytes > len(w.batch) {
		overlapBytes = 0
	}
	seed := make([]byte, overlapBytes)
	copy(seed, w.batch[len(w.batch)-overlapBytes:])
	w.batch = seed
	w.newBytes = 0
	w.seedDur = w.durFor(overlapBytes)
	w.batchStart = time.Time{}
	if overlapBytes > 0 {
		w.batchStart = now
	}
	w.lastSpeech = time.Time{}
	w.flushed++

	log.SegmentFlush(w.flushed, reason.String(), seg.Duration.Seconds(), seg.Overlap.Milliseconds(), w.queue.Len())
	go w.emit(seg)
}

func (w *Worker) batchDurLocked() time.Duration {
	return w.durFor(len(w.batch))
}

func (w *Worker) durFor(nbytes int) time.Duration {
	if w.cfg.SampleRate <= 0 {
		return 0
	}
	return time.Duration(nbytes/2) * time.Second / time.Duration(w.cfg.SampleRate)
}

func (w *Worker) bytesFor(d time.Duration) int {
	n := int(d * time.Duration(w.cfg.SampleRate) / time.Second)
	return n * 2
}
