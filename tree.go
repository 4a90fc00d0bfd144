package gemini

// FileType is a sealed tagged union of the three kinds of leaf resource
// a UrlNode can carry: a static file, a virtual link, or a dynamic
// program invocation. Modelled as an interface with a private method,
// the same way Line is sealed in text.go.
type FileType interface {
	// MimeType returns the mime type to report for this resource.
	MimeType() string
	fileType()
}

// NormalFile is a static file served from disk.
type NormalFile struct {
	Domain   string
	Path     Path
	Mimetype string
}

func (n *NormalFile) MimeType() string { return n.Mimetype }
func (n *NormalFile) fileType()        {}

// LinkObject is a virtual path mapped to a file elsewhere on disk,
// possibly belonging to a different domain's tree.
type LinkObject struct {
	Domain   *string `json:"domain,omitempty"`
	FilePath string  `json:"file_path"`
	LinkPath string  `json:"link_path"`
	Mimetype *string `json:"mime_type,omitempty"`
	Preload  *bool   `json:"preload,omitempty"`
}

func (l *LinkObject) MimeType() string { return derefString(l.Mimetype) }
func (l *LinkObject) fileType()        {}

// EnvironmentValue is a single cmd_env entry passed to a dynamic
// program invocation.
type EnvironmentValue struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// QueryParameter describes the input prompt a Dynamic entry shows the
// client when it is invoked without a query string.
type QueryParameter struct {
	DisplayText string `json:"display_text"`
	Private     bool   `json:"private"`
}

// DynamicObject is a program invocation spec: a virtual path mapped to
// an external program that produces the response body.
type DynamicObject struct {
	LinkPath         string             `json:"link_path"`
	ProgramPath      string             `json:"program_path"`
	Args             []string           `json:"args,omitempty"`
	CmdWorkingDir    string             `json:"cmd_working_dir"`
	CmdEnv           []EnvironmentValue `json:"cmd_env,omitempty"`
	Query            *QueryParameter    `json:"query,omitempty"`
	TakesCertificate bool               `json:"takes_certificate"`
	Cache            bool               `json:"cache"`
	GenTime          *uint64            `json:"gen_time,omitempty"`
	Mimetype         *string            `json:"mime_type,omitempty"`
	Domain           *string            `json:"domain,omitempty"`
}

func (d *DynamicObject) MimeType() string { return derefString(d.Mimetype) }
func (d *DynamicObject) fileType()        {}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// FileData pairs a FileType with optional pre-loaded bytes. Binary is
// set only for preloaded static resources; Dynamic entries always have
// a nil Binary.
type FileData struct {
	MetaData FileType
	Binary   []byte
}

// UrlNode is a tree node carrying a name, an ordered list of children,
// and optional FileData. A node with Data == nil is a directory; with
// Data != nil it is a leaf resource. Children are keyed by name but
// stored as an ordered slice: name lookup is linear, since tree fan-out
// is expected to stay small.
type UrlNode struct {
	Name     string
	Children []*UrlNode
	Data     *FileData
}

// UrlTree is one root UrlNode per served domain, immutable after
// BuildTree returns.
type UrlTree struct {
	Settings *ServerSettings
	Roots    []*UrlNode
}

// Domain returns the leaf's declared domain. Only valid to call on a
// node whose Data is non-nil.
func (n *UrlNode) Domain() string {
	switch v := n.Data.MetaData.(type) {
	case *NormalFile:
		return v.Domain
	case *LinkObject:
		return derefString(v.Domain)
	case *DynamicObject:
		return derefString(v.Domain)
	}
	return ""
}

func (n *UrlNode) hasChild(name string) bool {
	return n.childByName(name) != nil
}

func (n *UrlNode) childByName(name string) *UrlNode {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// AddFilePath ensures directory ancestors exist, then inserts a leaf
// named path.Last. If the leaf already exists and its domain matches
// data's domain, its Data is overwritten in place. If it exists with a
// different domain, a sibling leaf of the same name is appended instead
// (the ordered list tolerates duplicate names; lookup returns the first
// match — callers must ensure domain partitioning happens before
// lookup, see BuildTree's seperateRoots step).
func (n *UrlNode) AddFilePath(p Path, data FileData) {
	newNode := &UrlNode{Name: p.Last(), Data: &data}

	parent, hasParent := p.Parent()
	if !hasParent {
		if existing := n.childByName(p.Last()); existing == nil {
			n.Children = append(n.Children, newNode)
		} else if existing.Domain() != newNode.Domain() {
			n.Children = append(n.Children, newNode)
		} else {
			existing.Data = newNode.Data
		}
		return
	}

	existing := n.ChildFromPath(p)
	if existing == nil {
		n.AddDirPath(parent)
		dir := n.ChildFromPath(parent)
		dir.Children = append(dir.Children, newNode)
		return
	}
	if existing.Domain() != newNode.Domain() {
		dir := n.ChildFromPath(parent)
		dir.Children = append(dir.Children, newNode)
		return
	}
	existing.Data = newNode.Data
}

// AddDirPath idempotently ensures every component of p exists as a
// directory node. An empty path is a no-op.
func (n *UrlNode) AddDirPath(p Path) {
	node := n
	for _, name := range p.Components {
		if child := node.childByName(name); child != nil {
			node = child
			continue
		}
		child := &UrlNode{Name: name}
		node.Children = append(node.Children, child)
		node = child
	}
}

// RemovePath traverses to the parent of p and removes every child whose
// name equals p.Last (multi-remove, not break-on-first). A path whose
// parent does not exist is a silent no-op.
func (n *UrlNode) RemovePath(p Path) {
	if len(p.Components) == 0 {
		// Undefined by the original source; treated here as a no-op
		// rather than removing the node's own children.
		return
	}
	node := n
	for i := 0; i < len(p.Components)-1; i++ {
		child := node.childByName(p.Components[i])
		if child == nil {
			return
		}
		node = child
	}

	kept := node.Children[:0]
	for _, c := range node.Children {
		if c.Name != p.Last() {
			kept = append(kept, c)
		}
	}
	node.Children = kept
}

// ChildFromPath returns the descendant matching the full component
// list, or nil.
func (n *UrlNode) ChildFromPath(p Path) *UrlNode {
	node := n
	for _, name := range p.Components {
		node = node.childByName(name)
		if node == nil {
			return nil
		}
	}
	return node
}
