package source

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Location is a resolved call site inside the traced program.
type Location struct {
	Path string
	Line int64 // 1-based, 0 when unknown
}

// Valid reports whether the location can anchor a Step.
func (l Location) Valid() bool {
	return l.Path != "" && l.Line > 0
}

func (l Location) String() string {
	return fmt.Sprintf("%s:%d", l.Path, l.Line)
}

// ErrBadFrame is returned by ParseFrame for descriptors without a "path:line" prefix.
var ErrBadFrame = errors.New("source: unparsable frame descriptor")

// ParseFrame resolves a call-stack frame descriptor of the form
// "path:line:in `method'" (or "path:line ..."). Only the first
// whitespace-separated field is inspected. Paths that contain a drive letter
// or other colons are handled by taking the first ":<digits>" boundary.
func ParseFrame(frame string) (Location, error) {
	fields := strings.Fields(frame)
	if len(fields) == 0 {
		return Location{}, ErrBadFrame
	}
	head := fields[0]

	for from := 0; from < len(head); {
		idx := strings.IndexByte(head[from:], ':')
		if idx < 0 {
			break
		}
		colon := from + idx
		end := colon + 1
		for end < len(head) && head[end] >= '0' && head[end] <= '9' {
			end++
		}
		// нужна хотя бы одна цифра, и за ней либо конец, либо ':'
		if end > colon+1 && (end == len(head) || head[end] == ':') && colon > 0 {
			line, err := strconv.ParseInt(head[colon+1:end], 10, 64)
			if err != nil {
				return Location{}, fmt.Errorf("%w: %q: %w", ErrBadFrame, frame, err)
			}
			return Location{Path: head[:colon], Line: line}, nil
		}
		from = colon + 1
	}
	return Location{}, fmt.Errorf("%w: %q", ErrBadFrame, frame)
}

// NormalizePath folds a path to Unicode NFC so that the same file reported in
// decomposed form interns to a single path ID.
func NormalizePath(path string) string {
	if norm.NFC.IsNormalString(path) {
		return path
	}
	return norm.NFC.String(path)
}
