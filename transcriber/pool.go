package transcriber

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"glot/log"
)

// Pool runs a fixed number of provider sessions in parallel. Each
// submitted segment gets a monotonically increasing sequence number
// and lands on the least loaded slot; segments queued on the same
// slot run in submission order. A slot whose session fails replaces
// it with a fresh one and keeps working through its queue, except
// when the provider reports quota exhaustion, which disables the
// whole pool and surfaces on Fatal.
type Pool struct {
	tr        Transcriber
	cfg       SessionConfig
	slots     []*poolSlot
	results   chan Fragment
	fatal     chan error
	fatalOnce sync.Once
	quota     atomic.Bool
	nextSeq   atomic.Uint64
	wg        sync.WaitGroup
	ctx       context.Context

	closeMu sync.RWMutex
	closed  bool
}

type poolJob struct {
	seq uint64
	pcm []byte
}

type poolSlot struct {
	id      int
	jobs    chan poolJob
	pending atomic.Int64
}

func NewPool(ctx context.Context, tr Transcriber, cfg SessionConfig, size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{
		tr:      tr,
		cfg:     cfg,
		results: make(chan Fragment, 64),
		fatal:   make(chan error, 1),
		ctx:     ctx,
	}
	p.nextSeq.Store(1)
	for i := 0; i < size; i++ {
		slot := &poolSlot{id: i, jobs: make(chan poolJob, 32)}
		p.slots = append(p.slots, slot)
		p.wg.Add(1)
		go p.runSlot(slot)
	}
	return p
}

// Submit enqueues a segment and returns its sequence number, or 0 if
// the pool is already closed and the segment was discarded.
func (p *Pool) Submit(pcm []byte) uint64 {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed {
		return 0
	}
	seq := p.nextSeq.Add(1) - 1
	slot := p.slots[0]
	for _, s := range p.slots[1:] {
		if s.pending.Load() < slot.pending.Load() {
			slot = s
		}
	}
	slot.pending.Add(1)
	slot.jobs <- poolJob{seq: seq, pcm: pcm}
	return seq
}

// Results carries partial and final fragments from all slots, in no
// particular order across sequence numbers.
func (p *Pool) Results() <-chan Fragment { return p.results }

// Fatal fires at most once, on an error no session replacement can fix.
func (p *Pool) Fatal() <-chan error { return p.fatal }

// Close waits for queued segments to finish and closes Results. A
// Submit racing Close either lands before the slot queues close or is
// discarded; slots keep draining until every in-flight Submit returns.
func (p *Pool) Close() {
	p.closeMu.Lock()
	p.closed = true
	for _, s := range p.slots {
		close(s.jobs)
	}
	p.closeMu.Unlock()
	p.wg.Wait()
	close(p.results)
}

func (p *Pool) runSlot(slot *poolSlot) {
	defer p.wg.Done()
	var sess Session
	defer func() {
		if sess != nil {
			sess.Close()
		}
	}()

	for job := range slot.jobs {
		if p.quota.Load() {
			p.finishJob(slot, Fragment{Seq: job.seq, Err: ErrQuotaExhausted})
			continue
		}

		if sess == nil {
			s, err := p.tr.NewSession(p.ctx, p.cfg)
			if err != nil {
				p.noteFailure(err)
				log.Errorf("slot %d: opening session: %v", slot.id, err)
				p.finishJob(slot, Fragment{Seq: job.seq, Err: err})
				continue
			}
			sess = s
		}

		onPartial := func(text string) {
			// Partials are best effort and must never stall a slot.
			select {
			case p.results <- Fragment{Seq: job.seq, Text: text, IsPartial: true}:
			default:
			}
		}

		text, err := sess.Transcribe(p.ctx, job.pcm, onPartial)
		if err != nil {
			sess.Close()
			sess = nil
			p.noteFailure(err)
			log.SessionReplaced(slot.id, err)
			p.finishJob(slot, Fragment{Seq: job.seq, Err: err})
			continue
		}
		p.finishJob(slot, Fragment{Seq: job.seq, Text: text})
	}
}

// finishJob emits the job's terminal fragment. Failed segments still
// produce one so downstream ordering can advance past them.
func (p *Pool) finishJob(slot *poolSlot, frag Fragment) {
	p.results <- frag
	slot.pending.Add(-1)
}

func (p *Pool) noteFailure(err error) {
	if !errors.Is(err, ErrQuotaExhausted) {
		return
	}
	p.quota.Store(true)
	p.fatalOnce.Do(func() { p.fatal <- err })
}
