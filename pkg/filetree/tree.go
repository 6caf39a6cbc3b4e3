// Package filetree builds a display tree from flat slash-delimited paths.
//
// Every folder's children are kept with folders first, then files, each
// group in ascending name order. The order holds after every insertion, so a
// tree returned by Build is already sorted and Sort is idempotent on it.
package filetree

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Kind distinguishes folders from files.
type Kind uint8

const (
	Folder Kind = iota
	File
)

// String returns "folder" or "file".
func (k Kind) String() string {
	if k == File {
		return "file"
	}
	return "folder"
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "folder":
		*k = Folder
	case "file":
		*k = File
	default:
		return fmt.Errorf("filetree: unknown node type %q", b)
	}
	return nil
}

// DefaultPrefix is the leading segment stripped from every path.
const DefaultPrefix = "registry"

// DefaultRootName names the synthetic root folder.
const DefaultRootName = "root"

// Node is a folder or file in the tree.
type Node struct {
	Name string
	Kind Kind

	// Path is the display path from the root, with the prefix stripped.
	Path string

	// FullPath is the input path for files and Path for folders.
	FullPath string

	// FileType is set for files only; see FileType.
	FileType string

	// Children is nil for files and non-nil for folders.
	Children []*Node
}

// IsFolder reports whether n is a folder.
func (n *Node) IsFolder() bool {
	return n.Kind == Folder
}

// Child returns the direct child with the given name.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

type nodeJSON struct {
	Name     string   `json:"name"`
	Type     Kind     `json:"type"`
	Path     string   `json:"path"`
	FullPath string   `json:"fullPath"`
	FileType string   `json:"fileType,omitempty"`
	Children *[]*Node `json:"children,omitempty"`
}

// MarshalJSON writes folders with a children array, empty or not, and
// files without one.
func (n *Node) MarshalJSON() ([]byte, error) {
	w := nodeJSON{
		Name:     n.Name,
		Type:     n.Kind,
		Path:     n.Path,
		FullPath: n.FullPath,
		FileType: n.FileType,
	}
	if n.Kind == Folder {
		children := n.Children
		if children == nil {
			children = []*Node{}
		}
		w.Children = &children
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Node) UnmarshalJSON(data []byte) error {
	var w nodeJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*n = Node{
		Name:     w.Name,
		Kind:     w.Type,
		Path:     w.Path,
		FullPath: w.FullPath,
		FileType: w.FileType,
	}
	if n.Kind == Folder {
		n.Children = []*Node{}
		if w.Children != nil {
			n.Children = *w.Children
		}
	}
	return nil
}

type options struct {
	prefix   string
	rootName string
}

// Option configures Build.
type Option func(*options)

// WithPrefix sets the leading segment to strip. An empty prefix strips
// nothing.
func WithPrefix(segment string) Option {
	return func(o *options) {
		o.prefix = segment
	}
}

// WithRootName sets the name of the root folder.
func WithRootName(name string) Option {
	return func(o *options) {
		o.rootName = name
	}
}

// Build converts paths into a tree rooted at a synthetic folder.
//
// Empty segments are discarded and one leading prefix segment is removed.
// Folders are shared by name within their parent. A path that needs a file
// where a folder exists, or a folder where a file exists, is skipped.
// Build never fails; paths with no segments contribute nothing.
func Build(paths []string, opts ...Option) *Node {
	o := options{prefix: DefaultPrefix, rootName: DefaultRootName}
	for _, opt := range opts {
		opt(&o)
	}

	root := &Node{Name: o.rootName, Kind: Folder, Children: []*Node{}}
	for _, p := range paths {
		insert(root, p, Segments(p, o.prefix))
	}
	return root
}

// Segments splits p on "/", drops empty segments and strips prefix when it
// is the first segment.
func Segments(p, prefix string) []string {
	parts := strings.FieldsFunc(p, func(r rune) bool { return r == '/' })
	if prefix != "" && len(parts) > 0 && parts[0] == prefix {
		parts = parts[1:]
	}
	return parts
}

func insert(root *Node, fullPath string, parts []string) {
	if len(parts) == 0 {
		return
	}

	// Check the whole path before creating anything so a rejected path
	// leaves no empty folders behind.
	cur := root
	for i, part := range parts {
		child := cur.Child(part)
		if child == nil {
			break
		}
		// The last segment is either a duplicate file or a folder in the
		// way; both add nothing.
		if i == len(parts)-1 || child.Kind != Folder {
			return
		}
		cur = child
	}

	cur = root
	relPath := ""
	for i, part := range parts {
		if relPath == "" {
			relPath = part
		} else {
			relPath = relPath + "/" + part
		}

		if child := cur.Child(part); child != nil {
			cur = child
			continue
		}

		var child *Node
		if i == len(parts)-1 {
			child = &Node{
				Name:     part,
				Kind:     File,
				Path:     relPath,
				FullPath: fullPath,
				FileType: FileType(part),
			}
		} else {
			child = &Node{
				Name:     part,
				Kind:     Folder,
				Path:     relPath,
				FullPath: relPath,
				Children: []*Node{},
			}
		}
		cur.addChild(child)
		cur = child
	}
}

// addChild inserts child at its sorted position.
func (n *Node) addChild(child *Node) {
	i := sort.Search(len(n.Children), func(i int) bool {
		return !less(n.Children[i], child)
	})
	n.Children = append(n.Children, nil)
	copy(n.Children[i+1:], n.Children[i:])
	n.Children[i] = child
}

func less(a, b *Node) bool {
	if a.Kind != b.Kind {
		return a.Kind == Folder
	}
	return a.Name < b.Name
}

// Sort orders the children of every folder under n: folders first, then
// files, each by name. It is idempotent.
func Sort(n *Node) {
	if n == nil || n.Kind != Folder {
		return
	}
	sort.SliceStable(n.Children, func(i, j int) bool {
		return less(n.Children[i], n.Children[j])
	})
	for _, c := range n.Children {
		Sort(c)
	}
}

// FileType classifies a file name by extension.
func FileType(name string) string {
	ext := name
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		ext = name[i+1:]
	}
	switch strings.ToLower(ext) {
	case "tsx", "ts":
		return "typescript"
	case "jsx", "js":
		return "javascript"
	case "css":
		return "css"
	case "json":
		return "json"
	case "md", "mdx":
		return "markdown"
	default:
		return "text"
	}
}
