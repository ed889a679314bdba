// Package broadcast fans reconciled transcript units out to session
// listeners, translating each unit exactly once per distinct target
// language no matter how many listeners request it.
package broadcast

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"glot/log"
	"glot/translate"
)

// Payload is the unit delivered to every listener. SequenceID is -1
// for partial (still changing) text.
type Payload struct {
	OriginalText   string    `json:"originalText"`
	TranslatedText string    `json:"translatedText"`
	IsPartial      bool      `json:"isPartial"`
	SequenceID     int64     `json:"sequenceId"`
	Timestamp      time.Time `json:"timestamp"`
}

const PartialSequenceID = -1

// Deliverer pushes one payload to one listener. Implementations must
// not block indefinitely; a slow listener is that listener's problem.
type Deliverer interface {
	Deliver(p Payload) error
}

// Registry tells the broadcaster who is listening. The broadcaster
// never mutates membership.
type Registry interface {
	DistinctLanguages() []string
	ListenersFor(lang string) []Deliverer
}

type Broadcaster struct {
	reg     Registry
	tr      translate.Translator
	limiter *translate.PartialLimiter
	source  string

	genMu      sync.Mutex
	partialGen map[string]uint64
}

func New(reg Registry, tr translate.Translator, source string, partialInterval time.Duration) *Broadcaster {
	return &Broadcaster{
		reg:        reg,
		tr:         tr,
		limiter:    translate.NewPartialLimiter(partialInterval),
		source:     source,
		partialGen: make(map[string]uint64),
	}
}

// PublishFinal translates text for every distinct requested language
// concurrently and delivers the results. It returns when all
// languages have been handled; a failed language is skipped for this
// unit only.
func (b *Broadcaster) PublishFinal(ctx context.Context, text string, seq uint64) {
	if text == "" {
		return
	}
	langs := b.reg.DistinctLanguages()
	if len(langs) == 0 {
		return
	}

	start := time.Now()
	var wg sync.WaitGroup
	var listeners atomic.Int64
	for _, lang := range langs {
		wg.Add(1)
		go func(lang string) {
			defer wg.Done()
			listeners.Add(int64(b.translateAndDeliver(ctx, lang, text, int64(seq))))
		}(lang)
	}
	wg.Wait()

	log.BroadcastUnit(int64(seq), len(langs), int(listeners.Load()), float64(time.Since(start).Milliseconds()))
}

// PublishPartial offers uncommitted text to the per-language rate
// limiter. Rapid updates coalesce into a trailing call with the
// latest text; delivery happens as each language's translation lands.
func (b *Broadcaster) PublishPartial(ctx context.Context, text string) {
	if text == "" {
		return
	}
	for _, lang := range b.reg.DistinctLanguages() {
		lang := lang
		b.limiter.Offer(lang, text, func(latest string) {
			b.genMu.Lock()
			b.partialGen[lang]++
			gen := b.partialGen[lang]
			b.genMu.Unlock()
			go b.deliverPartial(ctx, lang, latest, gen)
		})
	}
}

// deliverPartial translates one coalesced partial and delivers it only
// if no newer partial for the same language was fired meanwhile. A
// slow translation of older text must never overwrite newer captions.
func (b *Broadcaster) deliverPartial(ctx context.Context, lang, text string, gen uint64) {
	translated, err := b.tr.Translate(ctx, text, b.source, lang)
	if err != nil {
		log.TranslationSkipped(lang, err)
		return
	}

	b.genMu.Lock()
	stale := b.partialGen[lang] != gen
	b.genMu.Unlock()
	if stale {
		return
	}

	p := Payload{
		OriginalText:   text,
		TranslatedText: translated,
		IsPartial:      true,
		SequenceID:     PartialSequenceID,
		Timestamp:      time.Now(),
	}
	for _, l := range b.reg.ListenersFor(lang) {
		if err := l.Deliver(p); err != nil {
			log.Debugf("listener delivery failed for %s: %v", lang, err)
		}
	}
}

func (b *Broadcaster) translateAndDeliver(ctx context.Context, lang, text string, seq int64) int {
	translated, err := b.tr.Translate(ctx, text, b.source, lang)
	if err != nil {
		log.TranslationSkipped(lang, err)
		return 0
	}

	p := Payload{
		OriginalText:   text,
		TranslatedText: translated,
		SequenceID:     seq,
		Timestamp:      time.Now(),
	}
	n := 0
	for _, l := range b.reg.ListenersFor(lang) {
		if err := l.Deliver(p); err != nil {
			log.Debugf("listener delivery failed for %s: %v", lang, err)
			continue
		}
		n++
	}
	return n
}

// Stop cancels pending partial-translation timers.
func (b *Broadcaster) Stop() {
	b.limiter.Stop()
}
