package transcriber

// Reorder restores submission order on a fragment stream. Finals are
// buffered until every lower sequence number has been released;
// partials are forwarded only for the lowest still-pending sequence
// and dropped otherwise, so a stale segment can never overwrite a
// newer caption.
type Reorder struct {
	out chan Fragment
}

func NewReorder(in <-chan Fragment, start uint64) *Reorder {
	r := &Reorder{out: make(chan Fragment, 64)}
	go r.run(in, start)
	return r
}

func (r *Reorder) Out() <-chan Fragment { return r.out }

func (r *Reorder) run(in <-chan Fragment, next uint64) {
	held := make(map[uint64]Fragment)
	for frag := range in {
		if frag.IsPartial {
			if frag.Seq != next {
				continue
			}
			select {
			case r.out <- frag:
			default:
			}
			continue
		}

		held[frag.Seq] = frag
		for {
			f, ok := held[next]
			if !ok {
				break
			}
			delete(held, next)
			r.out <- f
			next++
		}
	}

	// Input closed with gaps still open: release what remains in
	// ascending order so no transcript text is lost.
	for len(held) > 0 {
		var lowest uint64
		first := true
		for seq := range held {
			if first || seq < lowest {
				lowest = seq
				first = false
			}
		}
		f := held[lowest]
		delete(held, lowest)
		r.out <- f
	}
	close(r.out)
}
