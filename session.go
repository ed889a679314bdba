package main

import (
	"context"
	"sync/atomic"
	"time"

	"glot/audio"
	"glot/broadcast"
	"glot/capture"
	"glot/config"
	"glot/log"
	"glot/reconcile"
	"glot/segment"
	"glot/transcriber"
	"glot/translate"
)

// relaySession wires one speaker's pipeline end to end: capture
// callback → queue → segmentation worker → session pool → reordering
// → reconciliation → broadcast.
type relaySession struct {
	cfg    config.Config
	tr     transcriber.Transcriber
	queue  *capture.Queue
	worker *segment.Worker
	pool   *transcriber.Pool
	engine *reconcile.Engine
	bcast  *broadcast.Broadcaster

	device    audio.CaptureDevice
	cancel    context.CancelFunc
	relayDone chan struct{}

	submitted atomic.Uint64
	units     atomic.Uint64
}

func newRelaySession(cfg config.Config, tr transcriber.Transcriber, tl translate.Translator, reg broadcast.Registry) *relaySession {
	return &relaySession{
		cfg:       cfg,
		tr:        tr,
		queue:     capture.NewQueue(cfg.Audio.QueueCapacity),
		engine:    reconcile.New(),
		bcast:     broadcast.New(reg, tl, cfg.STT.Language, cfg.Translate.PartialInterval()),
		relayDone: make(chan struct{}),
	}
}

func (s *relaySession) Start(ctx context.Context, dev audio.CaptureDevice) error {
	ctx, s.cancel = context.WithCancel(ctx)

	s.pool = transcriber.NewPool(ctx, s.tr, transcriber.SessionConfig{
		Language:       s.cfg.STT.Language,
		Model:          s.cfg.STT.Model,
		Format:         s.cfg.STT.Format,
		SampleRate:     s.cfg.Audio.SampleRate,
		Channels:       s.cfg.Audio.Channels,
		ConnectTimeout: s.cfg.STT.ConnectTimeout(),
	}, s.cfg.STT.Sessions)
	reorder := transcriber.NewReorder(s.pool.Results(), 1)

	s.worker = segment.NewWorker(segment.Config{
		SampleRate:       s.cfg.Audio.SampleRate,
		Tick:             s.cfg.Segmenter.Tick(),
		TargetInterval:   s.cfg.Segmenter.TargetInterval(),
		MinSegment:       s.cfg.Segmenter.MinSegment(),
		SilenceAfter:     s.cfg.Segmenter.SilenceAfter(),
		Overlap:          s.cfg.Segmenter.Overlap(),
		QueueHighMark:    s.cfg.Audio.QueueHighMark,
		EnergyFloor:      s.cfg.Segmenter.EnergyFloor,
		EnergyMultiplier: s.cfg.Segmenter.EnergyMultiplier,
		EnergyAlpha:      s.cfg.Segmenter.EnergyAlpha,
	}, s.queue, s.submit)

	dev.SetCallback(func(data []byte, _ uint32) {
		pcm := make([]byte, len(data))
		copy(pcm, data)
		s.queue.Push(capture.Chunk{PCM: pcm, Time: time.Now()})
	})
	if err := dev.Start(); err != nil {
		s.cancel()
		return err
	}
	s.device = dev

	s.worker.Start(ctx)
	go s.relay(ctx, reorder)

	log.SessionStart(s.tr.Name(), s.cfg.STT.Language, s.cfg.STT.Sessions)
	return nil
}

func (s *relaySession) submit(seg segment.Segment) {
	s.pool.Submit(seg.PCM)
	s.submitted.Add(1)
}

func (s *relaySession) relay(ctx context.Context, r *transcriber.Reorder) {
	defer close(s.relayDone)
	for frag := range r.Out() {
		if frag.IsPartial {
			if s.cfg.Translate.TranslatePartials {
				s.bcast.PublishPartial(ctx, frag.Text)
			}
			continue
		}
		if frag.Err != nil {
			log.Warnf("segment %d abandoned: %v", frag.Seq, frag.Err)
			continue
		}
		text := s.engine.Advance(frag.Text)
		if text == "" {
			continue
		}
		s.units.Add(1)
		log.TranscriptText(frag.Seq, text)
		s.bcast.PublishFinal(ctx, text, frag.Seq)
	}
}

// Fatal reports unrecoverable provider conditions, quota exhaustion
// foremost. The pipeline keeps draining; the caller decides to stop.
func (s *relaySession) Fatal() <-chan error {
	return s.pool.Fatal()
}

// Stop tears the pipeline down back to front: capture first so no new
// audio arrives, then the terminal flush, then the pool drains its
// queued segments so their transcripts still reach listeners.
func (s *relaySession) Stop() {
	if s.device != nil {
		s.device.ClearCallback()
		s.device.Stop()
	}

	want := s.worker.Stop()
	// Flush handoffs run on their own goroutines; give the terminal
	// segment a moment to reach the pool before closing it.
	deadline := time.Now().Add(2 * time.Second)
	for s.submitted.Load() < want && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	s.pool.Close()
	<-s.relayDone
	s.bcast.Stop()
	s.cancel()
	log.SessionEnd(s.submitted.Load(), s.units.Load())
}
