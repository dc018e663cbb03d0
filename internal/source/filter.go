package source

import (
	"slices"
	"strings"
)

// DefaultExtension is the file extension of traced Ruby sources.
const DefaultExtension = ".rb"

// DefaultIgnore lists the path fragments excluded from call, return and line
// recording: the Ruby standard library, the recorder's own sources, internal
// frames and installed gems.
func DefaultIgnore() []string {
	return []string{
		"lib/ruby",
		"codetracer_pure_ruby_recorder.rb",
		"codetracer_ruby_recorder.rb",
		"recorder.rb",
		"<internal:",
		"gems/",
	}
}

// PathFilter decides which source paths produce trace events.
type PathFilter struct {
	Extension string   // required suffix; empty accepts any path
	Ignore    []string // substrings that exclude a path
}

// NewPathFilter returns a filter with the default extension and ignore list.
func NewPathFilter() *PathFilter {
	return &PathFilter{Extension: DefaultExtension, Ignore: DefaultIgnore()}
}

// Add appends a fragment to the ignore list.
func (f *PathFilter) Add(fragment string) {
	if fragment == "" || slices.Contains(f.Ignore, fragment) {
		return
	}
	f.Ignore = append(f.Ignore, fragment)
}

// Tracks reports whether events at path are recorded.
func (f *PathFilter) Tracks(path string) bool {
	if f == nil {
		return true
	}
	if f.Extension != "" && !strings.HasSuffix(path, f.Extension) {
		return false
	}
	for _, fragment := range f.Ignore {
		if strings.Contains(path, fragment) {
			return false
		}
	}
	return true
}
