package filetree

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// SkipDir returned from a WalkFunc skips the folder's children.
var SkipDir = errors.New("filetree: skip folder")

// WalkFunc is called for every node below the root, in display order.
// depth is 0 for the root's direct children.
type WalkFunc func(n *Node, depth int) error

// Walk visits every node under root depth first. The root itself is not
// visited. An error other than SkipDir stops the walk and is returned.
func Walk(root *Node, fn WalkFunc) error {
	if root == nil {
		return nil
	}
	return walk(root.Children, 0, fn)
}

func walk(nodes []*Node, depth int, fn WalkFunc) error {
	for _, n := range nodes {
		err := fn(n, depth)
		if errors.Is(err, SkipDir) {
			continue
		}
		if err != nil {
			return err
		}
		if n.Kind == Folder {
			if err := walk(n.Children, depth+1, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Find returns the node at the display path relPath, or nil.
func Find(root *Node, relPath string) *Node {
	if root == nil {
		return nil
	}
	cur := root
	for _, part := range Segments(relPath, "") {
		if cur.Kind != Folder {
			return nil
		}
		if cur = cur.Child(part); cur == nil {
			return nil
		}
	}
	return cur
}

// Files returns every file in display order.
func Files(root *Node) []*Node {
	var files []*Node
	_ = Walk(root, func(n *Node, _ int) error {
		if n.Kind == File {
			files = append(files, n)
		}
		return nil
	})
	return files
}

// FolderPaths returns the display path of every folder, for expanding the
// whole tree at once.
func FolderPaths(root *Node) []string {
	paths := []string{}
	_ = Walk(root, func(n *Node, _ int) error {
		if n.Kind == Folder {
			paths = append(paths, n.Path)
		}
		return nil
	})
	return paths
}

// Render writes an indented text view of the tree.
//
//	├── ui/
//	│   └── button.tsx
//	└── index.ts
func Render(w io.Writer, root *Node) error {
	if root == nil {
		return nil
	}
	return render(w, root.Children, "")
}

func render(w io.Writer, nodes []*Node, indent string) error {
	for i, n := range nodes {
		branch, next := "├── ", "│   "
		if i == len(nodes)-1 {
			branch, next = "└── ", "    "
		}
		name := n.Name
		if n.Kind == Folder {
			name += "/"
		}
		if _, err := fmt.Fprintf(w, "%s%s%s\n", indent, branch, name); err != nil {
			return err
		}
		if n.Kind == Folder {
			if err := render(w, n.Children, indent+next); err != nil {
				return err
			}
		}
	}
	return nil
}

// String renders the tree to a string.
func (n *Node) String() string {
	var b strings.Builder
	_ = Render(&b, n)
	return b.String()
}
