package homepage

// BookmarkEntry is one entry under a bookmark name in bookmarks.yaml.
type BookmarkEntry struct {
	Icon        string `yaml:"icon"`
	Abbr        string `yaml:"abbr"`
	Href        string `yaml:"href"`
	Description string `yaml:"description"`
}

// BookmarkGroup maps a group name to its bookmarks:
//
//	- Developer:
//	    - Github:
//	        - abbr: GH
//	          href: https://github.com/
type BookmarkGroup map[string][]map[string][]BookmarkEntry

// BookmarksConfig is the root of bookmarks.yaml.
type BookmarksConfig []BookmarkGroup
