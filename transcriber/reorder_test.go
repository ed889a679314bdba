package transcriber

import (
	"errors"
	"testing"
	"time"
)

func collectFinals(t *testing.T, r *Reorder) []Fragment {
	t.Helper()
	var finals []Fragment
	timeout := time.After(2 * time.Second)
	for {
		select {
		case frag, ok := <-r.Out():
			if !ok {
				return finals
			}
			if !frag.IsPartial {
				finals = append(finals, frag)
			}
		case <-timeout:
			t.Fatal("timed out waiting for reordered output")
		}
	}
}

func TestReorderOutOfOrderFinals(t *testing.T) {
	in := make(chan Fragment, 8)
	r := NewReorder(in, 1)

	in <- Fragment{Seq: 2, Text: "two"}
	in <- Fragment{Seq: 3, Text: "three"}
	in <- Fragment{Seq: 1, Text: "one"}
	close(in)

	finals := collectFinals(t, r)
	want := []string{"one", "two", "three"}
	if len(finals) != len(want) {
		t.Fatalf("got %d finals, want %d", len(finals), len(want))
	}
	for i, w := range want {
		if finals[i].Text != w {
			t.Errorf("final[%d] = %q, want %q", i, finals[i].Text, w)
		}
		if finals[i].Seq != uint64(i+1) {
			t.Errorf("final[%d] seq = %d, want %d", i, finals[i].Seq, i+1)
		}
	}
}

func TestReorderPartialGate(t *testing.T) {
	in := make(chan Fragment, 8)
	r := NewReorder(in, 1)

	// Partial for a sequence that is not the lowest pending one must
	// be dropped, never delivered later.
	in <- Fragment{Seq: 2, Text: "stale", IsPartial: true}
	in <- Fragment{Seq: 1, Text: "cur", IsPartial: true}
	in <- Fragment{Seq: 1, Text: "one"}
	in <- Fragment{Seq: 2, Text: "fresh", IsPartial: true}
	in <- Fragment{Seq: 2, Text: "two"}
	close(in)

	var got []Fragment
	for frag := range r.Out() {
		got = append(got, frag)
	}

	want := []struct {
		text    string
		partial bool
	}{
		{"cur", true},
		{"one", false},
		{"fresh", true},
		{"two", false},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d fragments %v, want %d", len(got), got, len(want))
	}
	for i, w := range want {
		if got[i].Text != w.text || got[i].IsPartial != w.partial {
			t.Errorf("fragment[%d] = {%q partial=%v}, want {%q partial=%v}",
				i, got[i].Text, got[i].IsPartial, w.text, w.partial)
		}
	}
}

func TestReorderFailedFinalAdvances(t *testing.T) {
	in := make(chan Fragment, 8)
	r := NewReorder(in, 1)

	boom := errors.New("boom")
	in <- Fragment{Seq: 2, Text: "two"}
	in <- Fragment{Seq: 1, Err: boom}
	close(in)

	finals := collectFinals(t, r)
	if len(finals) != 2 {
		t.Fatalf("got %d finals, want 2", len(finals))
	}
	if !errors.Is(finals[0].Err, boom) {
		t.Errorf("final[0].Err = %v, want boom", finals[0].Err)
	}
	if finals[1].Text != "two" {
		t.Errorf("final[1] = %q, want %q", finals[1].Text, "two")
	}
}

func TestReorderFlushOnClose(t *testing.T) {
	in := make(chan Fragment, 8)
	r := NewReorder(in, 1)

	// Sequence 1 never arrives. Closing the input must still release
	// the held finals in ascending order.
	in <- Fragment{Seq: 5, Text: "five"}
	in <- Fragment{Seq: 3, Text: "three"}
	close(in)

	finals := collectFinals(t, r)
	if len(finals) != 2 {
		t.Fatalf("got %d finals, want 2", len(finals))
	}
	if finals[0].Seq != 3 || finals[1].Seq != 5 {
		t.Errorf("flush order = %d,%d, want 3,5", finals[0].Seq, finals[1].Seq)
	}
}
