package gemini

import (
	"os"
	"path/filepath"
	"sort"
)

// genDocPage writes a Gemtext index of every resource under a domain
// root to <settings.Root>/<domain>/<settings.DocPagePath>, built from the
// Line/Text types in text.go. ListenAndServe calls it once per domain
// root at startup.
func genDocPage(root *UrlNode, settings *ServerSettings) error {
	if !settings.GenDocPage {
		return nil
	}

	links := collectLinks(root, RootPath())
	sort.Slice(links, func(i, j int) bool { return links[i].URL < links[j].URL })

	text := Text{LineHeading1(root.Name)}
	for _, l := range links {
		text = append(text, l)
	}

	outPath := filepath.Join(settings.Root, root.Name, settings.DocPagePath)
	return os.WriteFile(outPath, []byte(text.String()), 0o644)
}

func collectLinks(node *UrlNode, path Path) []LineLink {
	var out []LineLink
	for _, child := range node.Children {
		var rel Path
		if path.IsRoot() {
			rel = NewPath(child.Name)
		} else {
			rel = PathFromParent(path, NewPath(child.Name))
		}

		if len(child.Children) != 0 {
			out = append(out, collectLinks(child, rel)...)
		}
		if child.Data != nil {
			out = append(out, LineLink{URL: "/" + rel.Original})
		}
	}
	return out
}
