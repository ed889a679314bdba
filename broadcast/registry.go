package broadcast

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// MemoryRegistry tracks the listeners of one live session. Listeners
// join with a target language, may switch it at any time, and start
// receiving units for the new language from the next unit on.
type MemoryRegistry struct {
	mu        sync.RWMutex
	listeners map[uuid.UUID]*listener
}

type listener struct {
	lang    string
	deliver Deliverer
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{listeners: make(map[uuid.UUID]*listener)}
}

func (r *MemoryRegistry) Join(lang string, d Deliverer) uuid.UUID {
	id := uuid.New()
	r.mu.Lock()
	r.listeners[id] = &listener{lang: lang, deliver: d}
	r.mu.Unlock()
	return id
}

func (r *MemoryRegistry) Leave(id uuid.UUID) {
	r.mu.Lock()
	delete(r.listeners, id)
	r.mu.Unlock()
}

func (r *MemoryRegistry) SetLanguage(id uuid.UUID, lang string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.listeners[id]
	if !ok {
		return false
	}
	l.lang = lang
	return true
}

func (r *MemoryRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

func (r *MemoryRegistry) DistinctLanguages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]struct{})
	for _, l := range r.listeners {
		seen[l.lang] = struct{}{}
	}
	langs := make([]string, 0, len(seen))
	for lang := range seen {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

func (r *MemoryRegistry) ListenersFor(lang string) []Deliverer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Deliverer
	for _, l := range r.listeners {
		if l.lang == lang {
			out = append(out, l.deliver)
		}
	}
	return out
}
