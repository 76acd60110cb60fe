package view

import (
	"sync"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
)

// Form is the add-bookmark input held by the view. Submitting a valid draft
// clears it; an invalid one is kept so the user can fix it.
type Form struct {
	mu    sync.Mutex
	draft domain.Draft
}

func (f *Form) Set(d domain.Draft) {
	f.mu.Lock()
	f.draft = d
	f.mu.Unlock()
}

func (f *Form) Draft() domain.Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

func (f *Form) Clear() {
	f.Set(domain.Draft{})
}
