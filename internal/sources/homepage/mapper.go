package homepage

import (
	"errors"

	"github.com/MrSnakeDoc/smartmark/internal/domain"
)

// ErrNoBookmarks is returned when a config holds no importable bookmark.
var ErrNoBookmarks = errors.New("no valid bookmarks found in config")

// Skipped describes an entry the mapper left out.
type Skipped struct {
	Group  string
	Name   string
	Reason string
}

type Mapper struct{}

func NewMapper() *Mapper {
	return &Mapper{}
}

// MapDrafts turns every bookmark of config into a draft titled with the
// bookmark name. Entries without a valid URL and repeated URLs are skipped.
// Groups keep their file order.
func (m *Mapper) MapDrafts(config BookmarksConfig) ([]domain.Draft, []Skipped, error) {
	drafts := make([]domain.Draft, 0)
	var skipped []Skipped
	seen := make(map[string]bool)

	for _, group := range config {
		for groupName, bookmarks := range group {
			for _, named := range bookmarks {
				for name, entries := range named {
					if len(entries) == 0 {
						skipped = append(skipped, Skipped{Group: groupName, Name: name, Reason: "no entry"})
						continue
					}

					d := domain.Draft{Title: name, URL: entries[0].Href}.Normalize()
					if err := d.Validate(); err != nil {
						skipped = append(skipped, Skipped{Group: groupName, Name: name, Reason: err.Error()})
						continue
					}
					if seen[d.URL] {
						skipped = append(skipped, Skipped{Group: groupName, Name: name, Reason: "duplicate url"})
						continue
					}
					seen[d.URL] = true
					drafts = append(drafts, d)
				}
			}
		}
	}

	if len(drafts) == 0 {
		return nil, skipped, ErrNoBookmarks
	}
	return drafts, skipped, nil
}
