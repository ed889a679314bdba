// Package capture holds the bounded ingestion buffer between the audio
// device callback and the segmentation worker. The device side only ever
// pushes; the worker side only ever drains.
package capture

import (
	"sync"
	"time"

	"glot/log"
)

// Chunk is one capture quantum of 16-bit little-endian mono PCM. Immutable
// after Push.
type Chunk struct {
	PCM  []byte
	Time time.Time
}

func (c Chunk) Duration(sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	samples := len(c.PCM) / 2
	return time.Duration(samples) * time.Second / time.Duration(sampleRate)
}

// Queue is a fixed-capacity FIFO with a lossy-oldest overflow policy. Push
// never blocks and never fails: at capacity the oldest chunk is evicted so
// the device callback can always return immediately.
type Queue struct {
	mu      sync.Mutex
	buf     []Chunk
	head    int
	count   int
	dropped uint64
	lastLog time.Time
}

const dropLogEvery = 5 * time.Second

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{buf: make([]Chunk, capacity)}
}

func (q *Queue) Push(c Chunk) {
	var dropped uint64
	var capacity int
	logDrop := false

	q.mu.Lock()
	if q.count == len(q.buf) {
		// evict oldest
		q.head = (q.head + 1) % len(q.buf)
		q.count--
		q.dropped++
		if time.Since(q.lastLog) >= dropLogEvery {
			q.lastLog = time.Now()
			dropped = q.dropped
			capacity = len(q.buf)
			logDrop = true
		}
	}
	q.buf[(q.head+q.count)%len(q.buf)] = c
	q.count++
	q.mu.Unlock()

	if logDrop {
		log.CaptureDrop(dropped, capacity)
	}
}

// DrainAll removes and returns every queued chunk in arrival order. Used
// exclusively by the segmentation worker.
func (q *Queue) DrainAll() []Chunk {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil
	}
	out := make([]Chunk, q.count)
	for i := 0; i < q.count; i++ {
		out[i] = q.buf[(q.head+i)%len(q.buf)]
		q.buf[(q.head+i)%len(q.buf)] = Chunk{}
	}
	q.head = 0
	q.count = 0
	return out
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *Queue) Capacity() int {
	return len(q.buf)
}

// Dropped reports the total number of chunks evicted since creation.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}
