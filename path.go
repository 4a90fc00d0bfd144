package gemini

import "strings"

// Path is a slash-separated sequence of components plus the original
// string it was parsed from. The component list is never empty except
// for the distinguished root path.
type Path struct {
	Original   string
	Components []string
}

// NewPath normalises back-slashes to forward slashes and splits the
// result on "/".
func NewPath(s string) Path {
	s = strings.ReplaceAll(s, "\\", "/")
	return Path{
		Original:   s,
		Components: strings.Split(s, "/"),
	}
}

func pathFromComponents(components []string) Path {
	return Path{
		Original:   strings.Join(components, "/"),
		Components: components,
	}
}

// RootPath is the distinguished empty path.
func RootPath() Path {
	return pathFromComponents(nil)
}

// PathFromParent concatenates parent and rel, original-string first,
// then re-splits the result.
func PathFromParent(parent, rel Path) Path {
	return NewPath(parent.Original + "/" + rel.Original)
}

// Parent returns the path with its last component removed, or false if
// the path has fewer than two components.
func (p Path) Parent() (Path, bool) {
	if len(p.Components) <= 1 {
		return Path{}, false
	}
	return pathFromComponents(append([]string(nil), p.Components[:len(p.Components)-1]...)), true
}

// Depth returns the number of components.
func (p Path) Depth() int {
	return len(p.Components)
}

// SkipComponents returns the path with its first n components removed.
func (p Path) SkipComponents(n int) Path {
	return pathFromComponents(append([]string(nil), p.Components[n:]...))
}

// Last returns the final component. The path must be non-empty.
func (p Path) Last() string {
	return p.Components[len(p.Components)-1]
}

// IsRoot reports whether the path has no components.
func (p Path) IsRoot() bool {
	return len(p.Components) == 0
}
