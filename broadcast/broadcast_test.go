package broadcast

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"glot/translate"
)

func TestPublishFinalTranslatesOncePerLanguage(t *testing.T) {
	reg := NewMemoryRegistry()
	langs := []string{"es", "fr", "de", "ja", "pt"}
	var deliverers []*ChannelDeliverer
	for i := 0; i < 50; i++ {
		d := NewChannelDeliverer(8)
		deliverers = append(deliverers, d)
		reg.Join(langs[i%len(langs)], d)
	}

	fake := translate.NewFakeTranslator()
	b := New(reg, fake, "en", 800*time.Millisecond)
	defer b.Stop()

	b.PublishFinal(context.Background(), "good morning", 1)

	if got := fake.CallCount(); got != len(langs) {
		t.Errorf("translation calls = %d, want %d (one per distinct language, not per listener)",
			got, len(langs))
	}
	for i, d := range deliverers {
		select {
		case p := <-d.Ch():
			if p.OriginalText != "good morning" {
				t.Errorf("listener %d original = %q", i, p.OriginalText)
			}
			if p.SequenceID != 1 || p.IsPartial {
				t.Errorf("listener %d payload = %+v, want final seq 1", i, p)
			}
			wantLang := langs[i%len(langs)]
			if p.TranslatedText != "["+wantLang+"] good morning" {
				t.Errorf("listener %d translated = %q, want %s text", i, p.TranslatedText, wantLang)
			}
		default:
			t.Fatalf("listener %d received nothing", i)
		}
	}
}

func TestPublishFinalSkipsFailedLanguage(t *testing.T) {
	reg := NewMemoryRegistry()
	es := NewChannelDeliverer(8)
	fr := NewChannelDeliverer(8)
	reg.Join("es", es)
	reg.Join("fr", fr)

	fake := translate.NewFakeTranslator()
	fake.FailLanguage("es", errors.New("upstream 500"))
	b := New(reg, fake, "en", 800*time.Millisecond)
	defer b.Stop()

	b.PublishFinal(context.Background(), "hello", 1)

	select {
	case <-es.Ch():
		t.Error("es listener received payload despite translation failure")
	default:
	}
	select {
	case p := <-fr.Ch():
		if p.TranslatedText != "[fr] hello" {
			t.Errorf("fr payload = %q", p.TranslatedText)
		}
	default:
		t.Error("fr listener received nothing; failure must stay isolated")
	}

	// The failed language recovers on the next unit.
	fake.FailLanguage("es", nil)
	b.PublishFinal(context.Background(), "world", 2)
	select {
	case p := <-es.Ch():
		if p.TranslatedText != "[es] world" {
			t.Errorf("es payload = %q", p.TranslatedText)
		}
	default:
		t.Error("es listener still receiving nothing after recovery")
	}
}

func TestLanguageSwitchTakesEffectNextUnit(t *testing.T) {
	reg := NewMemoryRegistry()
	d := NewChannelDeliverer(8)
	id := reg.Join("es", d)

	fake := translate.NewFakeTranslator()
	b := New(reg, fake, "en", 800*time.Millisecond)
	defer b.Stop()

	b.PublishFinal(context.Background(), "one", 1)
	if !reg.SetLanguage(id, "fr") {
		t.Fatal("SetLanguage failed")
	}
	b.PublishFinal(context.Background(), "two", 2)

	first := <-d.Ch()
	second := <-d.Ch()
	if first.TranslatedText != "[es] one" {
		t.Errorf("first = %q, want es", first.TranslatedText)
	}
	if second.TranslatedText != "[fr] two" {
		t.Errorf("second = %q, want fr", second.TranslatedText)
	}
}

func TestPublishPartialRateLimitedAndTagged(t *testing.T) {
	reg := NewMemoryRegistry()
	d := NewChannelDeliverer(8)
	reg.Join("es", d)

	fake := translate.NewFakeTranslator()
	b := New(reg, fake, "en", 50*time.Millisecond)
	defer b.Stop()

	ctx := context.Background()
	b.PublishPartial(ctx, "hel")
	b.PublishPartial(ctx, "hell")
	b.PublishPartial(ctx, "hello")

	deadline := time.After(500 * time.Millisecond)
	var got []Payload
	for len(got) < 2 {
		select {
		case p := <-d.Ch():
			got = append(got, p)
		case <-deadline:
			t.Fatalf("got %d partial payloads, want 2", len(got))
		}
	}

	for i, p := range got {
		if !p.IsPartial || p.SequenceID != PartialSequenceID {
			t.Errorf("payload[%d] = %+v, want partial with sequence -1", i, p)
		}
	}
	if got[0].OriginalText != "hel" {
		t.Errorf("leading partial = %q, want %q", got[0].OriginalText, "hel")
	}
	if got[1].OriginalText != "hello" {
		t.Errorf("trailing partial = %q, want latest text %q", got[1].OriginalText, "hello")
	}
}

// stallFirstTranslator delays its first call so an older partial's
// translation lands after a newer one's.
type stallFirstTranslator struct {
	mu    sync.Mutex
	calls int
	stall time.Duration
}

func (s *stallFirstTranslator) Translate(_ context.Context, text, _, target string) (string, error) {
	s.mu.Lock()
	s.calls++
	first := s.calls == 1
	s.mu.Unlock()
	if first {
		time.Sleep(s.stall)
	}
	return "[" + target + "] " + text, nil
}

func TestPublishPartialDropsSupersededTranslation(t *testing.T) {
	reg := NewMemoryRegistry()
	d := NewChannelDeliverer(8)
	reg.Join("es", d)

	tr := &stallFirstTranslator{stall: 150 * time.Millisecond}
	b := New(reg, tr, "en", 30*time.Millisecond)
	defer b.Stop()

	ctx := context.Background()
	b.PublishPartial(ctx, "hello")
	time.Sleep(50 * time.Millisecond)
	b.PublishPartial(ctx, "hello world")

	// Wait out the stalled first translation, then collect everything.
	time.Sleep(250 * time.Millisecond)
	var got []Payload
	for {
		select {
		case p := <-d.Ch():
			got = append(got, p)
			continue
		default:
		}
		break
	}
	if len(got) == 0 {
		t.Fatal("no partial delivered")
	}
	last := got[len(got)-1]
	if last.OriginalText != "hello world" {
		t.Errorf("last delivered partial = %q, want the newest text", last.OriginalText)
	}
	for _, p := range got[:len(got)-1] {
		if p.OriginalText == "hello world" {
			t.Errorf("older partial delivered after newer one: %v", got)
			break
		}
	}
}

func TestEmptyRegistryPublishesNothing(t *testing.T) {
	reg := NewMemoryRegistry()
	fake := translate.NewFakeTranslator()
	b := New(reg, fake, "en", 800*time.Millisecond)
	defer b.Stop()

	b.PublishFinal(context.Background(), "anyone there", 1)
	if got := fake.CallCount(); got != 0 {
		t.Errorf("translation calls = %d, want 0 with no listeners", got)
	}
}

func TestChannelDelivererDropsOldestWhenFull(t *testing.T) {
	d := NewChannelDeliverer(2)
	for i := 0; i < 5; i++ {
		if err := d.Deliver(Payload{SequenceID: int64(i)}); err != nil {
			t.Fatalf("Deliver: %v", err)
		}
	}
	first := <-d.Ch()
	second := <-d.Ch()
	if first.SequenceID != 3 || second.SequenceID != 4 {
		t.Errorf("kept %d,%d, want newest 3,4", first.SequenceID, second.SequenceID)
	}
}

func TestRegistryDistinctLanguages(t *testing.T) {
	reg := NewMemoryRegistry()
	a := reg.Join("es", NewChannelDeliverer(1))
	reg.Join("es", NewChannelDeliverer(1))
	reg.Join("fr", NewChannelDeliverer(1))

	langs := reg.DistinctLanguages()
	if len(langs) != 2 || langs[0] != "es" || langs[1] != "fr" {
		t.Errorf("DistinctLanguages = %v, want [es fr]", langs)
	}

	reg.Leave(a)
	if got := reg.Len(); got != 2 {
		t.Errorf("Len = %d, want 2", got)
	}
	if got := len(reg.ListenersFor("es")); got != 1 {
		t.Errorf("es listeners = %d, want 1", got)
	}
}
