package gemini

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestBuildTreeDefaultWhitelistWithBlacklist(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "hello.gmi"), []byte("hi"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "secret.gmi"), []byte("shh"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeJSON(t, filepath.Join(root, "config.json"), Config{
		DefaultWhitelist: true,
		Blacklist:        []string{"secret.gmi"},
	})

	settings := DefaultServerSettings()
	settings.Root = root
	settings.Domain = "localhost"
	settings.ConfigFiles = []string{"config.json"}

	tree, err := BuildTree(&settings, zap.NewNop())
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	if len(tree.Roots) != 1 || tree.Roots[0].Name != "localhost" {
		t.Fatalf("Roots = %+v, want single localhost root", tree.Roots)
	}
	if tree.Roots[0].ChildFromPath(NewPath("hello.gmi")) == nil {
		t.Fatalf("expected hello.gmi to be reachable")
	}
	if tree.Roots[0].ChildFromPath(NewPath("secret.gmi")) != nil {
		t.Fatalf("expected secret.gmi to be blacklisted out")
	}
}

func TestBuildTreeExplicitWhitelistOnly(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.gmi"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "b.gmi"), []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeJSON(t, filepath.Join(root, "config.json"), Config{
		DefaultWhitelist: false,
		Whitelist:        []string{"a.gmi"},
	})

	settings := DefaultServerSettings()
	settings.Root = root
	settings.Domain = "localhost"
	settings.ConfigFiles = []string{"config.json"}

	tree, err := BuildTree(&settings, zap.NewNop())
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	if tree.Roots[0].ChildFromPath(NewPath("a.gmi")) == nil {
		t.Fatalf("expected a.gmi to be whitelisted")
	}
	if tree.Roots[0].ChildFromPath(NewPath("b.gmi")) != nil {
		t.Fatalf("expected b.gmi to stay unreachable, not in whitelist")
	}
}

func TestBuildTreePartitionsByDomain(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "a.gmi"), []byte("a"), 0o644); err != nil {
		t.Fatal(err)
	}
	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(sub, "b.gmi"), []byte("b"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeJSON(t, filepath.Join(root, "config.json"), Config{
		DefaultWhitelist: true,
		ConfigFiles:      []string{"sub/sub.json"},
	})
	other := "other.example"
	writeJSON(t, filepath.Join(sub, "sub.json"), Config{
		DefaultWhitelist: true,
		Domain:           &other,
	})

	settings := DefaultServerSettings()
	settings.Root = root
	settings.Domain = "localhost"
	settings.ConfigFiles = []string{"config.json"}

	tree, err := BuildTree(&settings, zap.NewNop())
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	if len(tree.Roots) != 2 {
		t.Fatalf("expected two domain roots (localhost, other.example), got %d: %+v", len(tree.Roots), tree.Roots)
	}
	// Roots are sorted by domain name.
	if tree.Roots[0].Name != "localhost" || tree.Roots[1].Name != "other.example" {
		t.Fatalf("Roots = %q, %q, want localhost then other.example", tree.Roots[0].Name, tree.Roots[1].Name)
	}
	if tree.Roots[1].ChildFromPath(NewPath("sub/b.gmi")) == nil {
		t.Fatalf("expected sub/b.gmi under the other.example root")
	}
}

func TestBuildTreeRejectsDuplicateConfigLevel(t *testing.T) {
	root := t.TempDir()
	writeJSON(t, filepath.Join(root, "config.json"), Config{
		DefaultWhitelist: true,
		ConfigFiles:      []string{"a.json", "b.json"},
	})
	writeJSON(t, filepath.Join(root, "a.json"), Config{DefaultWhitelist: true})
	writeJSON(t, filepath.Join(root, "b.json"), Config{DefaultWhitelist: true})

	settings := DefaultServerSettings()
	settings.Root = root
	settings.ConfigFiles = []string{"config.json"}
	settings.NeverExit = false

	if _, err := BuildTree(&settings, zap.NewNop()); err == nil {
		t.Fatalf("expected duplicate-level error when NeverExit is false")
	}

	settings.NeverExit = true
	if _, err := BuildTree(&settings, zap.NewNop()); err != nil {
		t.Fatalf("expected the first config to win under NeverExit, got error: %v", err)
	}
}

func TestBuildTreeLinkEntry(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "real.gmi"), []byte("real"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeJSON(t, filepath.Join(root, "config.json"), Config{
		Link: []LinkObject{{FilePath: "real.gmi", LinkPath: "virtual.gmi"}},
	})

	settings := DefaultServerSettings()
	settings.Root = root
	settings.Domain = "localhost"
	settings.ConfigFiles = []string{"config.json"}

	tree, err := BuildTree(&settings, zap.NewNop())
	if err != nil {
		t.Fatalf("BuildTree: %v", err)
	}
	node := tree.Roots[0].ChildFromPath(NewPath("virtual.gmi"))
	if node == nil {
		t.Fatalf("expected virtual.gmi link to be reachable")
	}
	link, ok := node.Data.MetaData.(*LinkObject)
	if !ok {
		t.Fatalf("expected *LinkObject, got %T", node.Data.MetaData)
	}
	if link.MimeType() != "text/gemini" {
		t.Fatalf("MimeType() = %q, want text/gemini", link.MimeType())
	}
}

func TestBuildTreeRejectsCacheWithQuery(t *testing.T) {
	root := t.TempDir()
	writeJSON(t, filepath.Join(root, "config.json"), Config{
		Dynamic: []DynamicObject{{
			LinkPath:    "run.cgi",
			ProgramPath: "/bin/true",
			Cache:       true,
			Query:       &QueryParameter{DisplayText: "q?"},
		}},
	})

	settings := DefaultServerSettings()
	settings.Root = root
	settings.ConfigFiles = []string{"config.json"}
	settings.NeverExit = false

	if _, err := BuildTree(&settings, zap.NewNop()); err == nil {
		t.Fatalf("expected cache+query combination to be rejected")
	}
}
