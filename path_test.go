package gemini

import (
	"reflect"
	"testing"
)

func TestNewPath(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a/b/c", []string{"a", "b", "c"}},
		{"a\\b\\c", []string{"a", "b", "c"}},
		{"", []string{""}},
		{"file.gmi", []string{"file.gmi"}},
	}
	for _, test := range tests {
		p := NewPath(test.in)
		if !reflect.DeepEqual(p.Components, test.want) {
			t.Errorf("NewPath(%q).Components = %v, want %v", test.in, p.Components, test.want)
		}
	}
}

func TestPathParent(t *testing.T) {
	p := NewPath("a/b/c")
	parent, ok := p.Parent()
	if !ok || !reflect.DeepEqual(parent.Components, []string{"a", "b"}) {
		t.Fatalf("Parent() = %v, %v", parent, ok)
	}

	single := NewPath("a")
	if _, ok := single.Parent(); ok {
		t.Fatalf("Parent() of single-component path should report false")
	}

	if _, ok := RootPath().Parent(); ok {
		t.Fatalf("Parent() of root path should report false")
	}
}

func TestPathFromParent(t *testing.T) {
	got := PathFromParent(NewPath("root"), NewPath("sub/file.gmi"))
	want := []string{"root", "sub", "file.gmi"}
	if !reflect.DeepEqual(got.Components, want) {
		t.Errorf("PathFromParent = %v, want %v", got.Components, want)
	}
}

func TestPathSkipComponents(t *testing.T) {
	p := NewPath("root/sub/file.gmi")
	got := p.SkipComponents(1)
	want := []string{"sub", "file.gmi"}
	if !reflect.DeepEqual(got.Components, want) {
		t.Errorf("SkipComponents(1) = %v, want %v", got.Components, want)
	}
}

func TestPathIsRoot(t *testing.T) {
	if !RootPath().IsRoot() {
		t.Errorf("RootPath().IsRoot() = false, want true")
	}
	if NewPath("").IsRoot() {
		t.Errorf(`NewPath("").IsRoot() = true, want false`)
	}
}

func TestPathLast(t *testing.T) {
	if got := NewPath("a/b/c.gmi").Last(); got != "c.gmi" {
		t.Errorf("Last() = %q, want %q", got, "c.gmi")
	}
}
