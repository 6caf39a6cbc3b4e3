package filetree

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func names(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}

// checkSorted verifies the display order at every folder.
func checkSorted(t *testing.T, n *Node) {
	t.Helper()
	for i := 1; i < len(n.Children); i++ {
		if less(n.Children[i], n.Children[i-1]) {
			t.Errorf("%q children out of order: %v", n.Path, names(n.Children))
		}
	}
	for _, c := range n.Children {
		if c.Kind == File && c.Children != nil {
			t.Errorf("file %q has children", c.Path)
		}
		if c.Kind == Folder {
			checkSorted(t, c)
		}
	}
}

func TestBuild_SharedFolder(t *testing.T) {
	root := Build([]string{"registry/a/x.ts", "registry/a/y.ts"})

	if len(root.Children) != 1 {
		t.Fatalf("root children = %v, want [a]", names(root.Children))
	}
	a := root.Children[0]
	if a.Name != "a" || a.Kind != Folder {
		t.Fatalf("child = %+v, want folder a", a)
	}
	if got := names(a.Children); !reflect.DeepEqual(got, []string{"x.ts", "y.ts"}) {
		t.Errorf("a children = %v, want [x.ts y.ts]", got)
	}
	x := a.Children[0]
	if x.Path != "a/x.ts" || x.FullPath != "registry/a/x.ts" || x.FileType != "typescript" {
		t.Errorf("x.ts = %+v", x)
	}
	if a.Path != "a" || a.FullPath != "a" {
		t.Errorf("folder paths = %q, %q, want a, a", a.Path, a.FullPath)
	}
}

func TestBuild_FoldersBeforeFiles(t *testing.T) {
	root := Build([]string{"b.ts", "a/z.ts"})

	got := root.Children
	if len(got) != 2 || got[0].Name != "a" || got[0].Kind != Folder || got[1].Name != "b.ts" || got[1].Kind != File {
		t.Errorf("root children = %v, want [a/ b.ts]", names(got))
	}
}

func TestBuild_Empty(t *testing.T) {
	root := Build(nil)
	if root == nil || root.Children == nil || len(root.Children) != 0 {
		t.Fatalf("Build(nil) = %+v, want root with empty children", root)
	}
	if root.Name != "root" || root.Kind != Folder {
		t.Errorf("root = %+v", root)
	}
}

func TestBuild_DegeneratePaths(t *testing.T) {
	root := Build([]string{"", "/", "//", "registry", "registry/"})
	if len(root.Children) != 0 {
		t.Errorf("children = %v, want none", names(root.Children))
	}

	root = Build([]string{"//registry//ui///button.tsx/"})
	b := Find(root, "ui/button.tsx")
	if b == nil || b.Kind != File {
		t.Fatalf("Find(ui/button.tsx) = %+v", b)
	}
	if b.FullPath != "//registry//ui///button.tsx/" {
		t.Errorf("FullPath = %q", b.FullPath)
	}
}

func TestBuild_PrefixOptions(t *testing.T) {
	paths := []string{"registry/ui/a.tsx", "src/b.ts"}

	root := Build(paths)
	if got := names(root.Children); !reflect.DeepEqual(got, []string{"src", "ui"}) {
		t.Errorf("default prefix children = %v", got)
	}

	root = Build(paths, WithPrefix(""))
	if got := names(root.Children); !reflect.DeepEqual(got, []string{"registry", "src"}) {
		t.Errorf("no prefix children = %v", got)
	}

	root = Build(paths, WithPrefix("src"), WithRootName("files"))
	if root.Name != "files" {
		t.Errorf("root name = %q", root.Name)
	}
	if got := names(root.Children); !reflect.DeepEqual(got, []string{"registry", "b.ts"}) {
		t.Errorf("src prefix children = %v", got)
	}

	// Only the first segment is stripped.
	root = Build([]string{"registry/registry/x.ts"})
	if Find(root, "registry/x.ts") == nil {
		t.Errorf("nested registry folder missing: %s", root)
	}
}

func TestBuild_SortedAtEveryDepth(t *testing.T) {
	paths := []string{
		"registry/z.ts",
		"registry/lib/utils.ts",
		"registry/components/ui/table.tsx",
		"registry/components/ui/button.tsx",
		"registry/components/data-table.tsx",
		"registry/components/blocks/b.tsx",
		"registry/components/blocks/a.tsx",
		"registry/a.css",
		"registry/hooks/use-x.ts",
	}
	root := Build(paths)
	checkSorted(t, root)

	if got := names(root.Children); !reflect.DeepEqual(got, []string{"components", "hooks", "lib", "a.css", "z.ts"}) {
		t.Errorf("root children = %v", got)
	}
	comps := Find(root, "components")
	if got := names(comps.Children); !reflect.DeepEqual(got, []string{"blocks", "ui", "data-table.tsx"}) {
		t.Errorf("components children = %v", got)
	}
}

func TestBuild_OrderIndependent(t *testing.T) {
	a := Build([]string{"x/b.ts", "x/a.ts", "y.ts", "x/c/d.ts"})
	b := Build([]string{"x/c/d.ts", "y.ts", "x/a.ts", "x/b.ts"})
	if a.String() != b.String() {
		t.Errorf("trees differ:\n%s\n%s", a, b)
	}
}

func TestBuild_DuplicateAndCollision(t *testing.T) {
	root := Build([]string{
		"ui/button.tsx",
		"ui/button.tsx",
		"ui",             // file where a folder exists
		"ui/button.tsx/x", // folder where a file exists
		"lib",
		"lib/utils.ts", // lib is already a file
	})

	if got := names(root.Children); !reflect.DeepEqual(got, []string{"ui", "lib"}) {
		t.Fatalf("root children = %v, want [ui lib]", got)
	}
	ui := root.Children[0]
	if len(ui.Children) != 1 || ui.Children[0].Kind != File {
		t.Errorf("ui children = %v", names(ui.Children))
	}
	if lib := root.Children[1]; lib.Kind != File || lib.Children != nil {
		t.Errorf("lib = %+v, want file leaf", lib)
	}
	checkSorted(t, root)
}

func TestSort_Idempotent(t *testing.T) {
	root := Build([]string{"b/y.ts", "b/x/z.ts", "a.ts", "c/d/e/f.ts", "c/d/a.ts"})
	before := root.String()

	Sort(root)
	Sort(root)
	if got := root.String(); got != before {
		t.Errorf("Sort changed a built tree:\n%s\nwant\n%s", got, before)
	}

	// Scramble every level and check Sort restores the order.
	var reverse func(n *Node)
	reverse = func(n *Node) {
		for i, j := 0, len(n.Children)-1; i < j; i, j = i+1, j-1 {
			n.Children[i], n.Children[j] = n.Children[j], n.Children[i]
		}
		for _, c := range n.Children {
			reverse(c)
		}
	}
	reverse(root)
	Sort(root)
	if got := root.String(); got != before {
		t.Errorf("Sort after scramble:\n%s\nwant\n%s", got, before)
	}
	checkSorted(t, root)

	Sort(nil)
}

func TestFileType(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"button.tsx", "typescript"},
		{"index.TS", "typescript"},
		{"legacy.js", "javascript"},
		{"App.jsx", "javascript"},
		{"globals.css", "css"},
		{"registry.json", "json"},
		{"README.md", "markdown"},
		{"page.mdx", "markdown"},
		{"Makefile", "text"},
		{"archive.tar.gz", "text"},
	}
	for _, tt := range tests {
		if got := FileType(tt.name); got != tt.want {
			t.Errorf("FileType(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestNode_JSON(t *testing.T) {
	root := Build([]string{"registry/ui/button.tsx"})
	root.Children = append(root.Children, &Node{Name: "empty", Kind: Folder, Path: "empty", FullPath: "empty"})

	data, err := json.Marshal(root)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"name":"root","type":"folder","path":"","fullPath":"","children":[` +
		`{"name":"ui","type":"folder","path":"ui","fullPath":"ui","children":[` +
		`{"name":"button.tsx","type":"file","path":"ui/button.tsx","fullPath":"registry/ui/button.tsx","fileType":"typescript"}]},` +
		`{"name":"empty","type":"folder","path":"empty","fullPath":"empty","children":[]}]}`
	if string(data) != want {
		t.Errorf("Marshal =\n%s\nwant\n%s", data, want)
	}

	var back Node
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back.String() != root.String() {
		t.Errorf("decoded tree =\n%s\nwant\n%s", back.String(), root.String())
	}
	btn := Find(&back, "ui/button.tsx")
	if btn == nil || btn.Children != nil || btn.FileType != "typescript" {
		t.Errorf("decoded file = %+v", btn)
	}
	if e := Find(&back, "empty"); e == nil || e.Children == nil {
		t.Errorf("decoded empty folder = %+v", e)
	}

	if err := json.Unmarshal([]byte(`{"type":"symlink"}`), &back); err == nil {
		t.Error("Unmarshal accepted unknown type")
	}
}

func TestWalkFindFiles(t *testing.T) {
	root := Build([]string{"registry/b/c.ts", "registry/a.ts", "registry/b/d/e.md"})

	var visited []string
	err := Walk(root, func(n *Node, depth int) error {
		visited = append(visited, strings.Repeat(" ", depth)+n.Name)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	want := []string{"b", " d", "  e.md", " c.ts", "a.ts"}
	if !reflect.DeepEqual(visited, want) {
		t.Errorf("Walk order = %q, want %q", visited, want)
	}

	visited = nil
	_ = Walk(root, func(n *Node, _ int) error {
		visited = append(visited, n.Name)
		if n.Name == "d" {
			return SkipDir
		}
		return nil
	})
	if !reflect.DeepEqual(visited, []string{"b", "d", "c.ts", "a.ts"}) {
		t.Errorf("Walk with SkipDir = %v", visited)
	}

	if n := Find(root, "/b/d/"); n == nil || n.Name != "d" {
		t.Errorf("Find(/b/d/) = %+v", n)
	}
	if n := Find(root, "b/c.ts/x"); n != nil {
		t.Errorf("Find through a file = %+v", n)
	}
	if n := Find(root, ""); n != root {
		t.Errorf("Find(\"\") = %+v, want root", n)
	}

	var full []string
	for _, f := range Files(root) {
		full = append(full, f.FullPath)
	}
	if !reflect.DeepEqual(full, []string{"registry/b/d/e.md", "registry/b/c.ts", "registry/a.ts"}) {
		t.Errorf("Files = %v", full)
	}

	if got := FolderPaths(root); !reflect.DeepEqual(got, []string{"b", "b/d"}) {
		t.Errorf("FolderPaths = %v", got)
	}
}

func TestRender(t *testing.T) {
	root := Build([]string{"registry/ui/table.tsx", "registry/ui/button.tsx", "registry/index.ts"})
	want := "├── ui/\n" +
		"│   ├── button.tsx\n" +
		"│   └── table.tsx\n" +
		"└── index.ts\n"
	if got := root.String(); got != want {
		t.Errorf("Render =\n%s\nwant\n%s", got, want)
	}
}
