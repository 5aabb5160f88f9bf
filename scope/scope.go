// Package scope implements hierarchical scope paths used to sub-address
// listeners independently of the event type.
//
// A path is written with dot notation:
//
//	error.connection.refused
//
// and stored as its non-empty segments. The empty path is the root scope.
// Listeners registered at a path are reached by any emission whose scope is at
// least as specific as that path.
package scope

import "strings"

// Separator is the character used to separate scope segments.
const Separator = "."

// Path is an immutable, ordered sequence of non-empty segments.
// Methods never modify the receiver; derived paths are fresh copies.
type Path []string

// Root is the empty (unscoped) path.
var Root = Path{}

// Parse splits text on the separator and drops empty segments, so leading,
// trailing and doubled dots are ignored.
//
// Example: "..error..connection." -> [error connection]
func Parse(text string) Path {
	if text == "" {
		return Root
	}
	raw := strings.Split(text, Separator)
	p := make(Path, 0, len(raw))
	for _, seg := range raw {
		if seg != "" {
			p = append(p, seg)
		}
	}
	return p
}

// Join builds a path from segments, dropping empty ones.
func Join(segments ...string) Path {
	p := make(Path, 0, len(segments))
	for _, seg := range segments {
		p = append(p, Parse(seg)...)
	}
	return p
}

// String returns the dotted representation of the path.
func (p Path) String() string {
	return strings.Join(p, Separator)
}

// Key returns a string usable as a map key. Distinct paths have distinct keys
// because segments never contain the separator.
func (p Path) Key() string {
	return p.String()
}

// Len returns the number of segments.
func (p Path) Len() int {
	return len(p)
}

// IsRoot reports whether p is the empty path.
func (p Path) IsRoot() bool {
	return len(p) == 0
}

// Parent returns the path without its last segment. The parent of the root is
// the root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Root
	}
	return p.prefix(len(p) - 1)
}

// Child returns a new path with segment appended.
func (p Path) Child(segment string) Path {
	out := make(Path, 0, len(p)+1)
	out = append(out, p...)
	return append(out, Parse(segment)...)
}

// Base returns the last segment, or "" for the root.
func (p Path) Base() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// Equal reports whether both paths hold the same segments.
func (p Path) Equal(other Path) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix is a leading sub-path of p.
// The root is a prefix of every path.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// AtLeastAsSpecific reports whether p is more specific than or equal to
// other, i.e. other is a prefix of p.
func (p Path) AtLeastAsSpecific(other Path) bool {
	return p.HasPrefix(other)
}

// Ascending returns every prefix of p from the root to p itself.
//
// Example: a.b -> [], [a], [a b]
func (p Path) Ascending() []Path {
	out := make([]Path, 0, len(p)+1)
	for i := 0; i <= len(p); i++ {
		out = append(out, p.prefix(i))
	}
	return out
}

// Descending returns every prefix of p from p itself down to the root.
//
// Example: a.b -> [a b], [a], []
func (p Path) Descending() []Path {
	out := make([]Path, 0, len(p)+1)
	for i := len(p); i >= 0; i-- {
		out = append(out, p.prefix(i))
	}
	return out
}

func (p Path) prefix(n int) Path {
	out := make(Path, n)
	copy(out, p[:n])
	return out
}
