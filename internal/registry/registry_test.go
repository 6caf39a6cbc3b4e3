package registry

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"log/slog"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vango-dev/uiregistry/internal/errors"
	"github.com/vango-dev/uiregistry/pkg/filetree"
)

const testManifest = `{
  "$schema": "https://ui.shadcn.com/schema/registry.json",
  "name": "acme",
  "homepage": "https://ui.acme.dev",
  "items": [
    {
      "name": "utils",
      "type": "registry:lib",
      "title": "Utils",
      "description": "Class name helpers.",
      "files": [{"path": "registry/lib/utils.ts", "type": "registry:lib", "target": "lib/utils.ts"}]
    },
    {
      "name": "button",
      "type": "registry:ui",
      "title": "Button",
      "description": "A button.",
      "files": [{"path": "registry/ui/button.tsx", "type": "registry:ui"}],
      "dependencies": ["@radix-ui/react-slot"],
      "registryDependencies": ["utils"]
    },
    {
      "name": "data-table",
      "type": "registry:block",
      "title": "Data Table",
      "description": "Sortable, filterable table.",
      "files": [
        {"path": "registry/blocks/data-table/table.tsx", "type": "registry:component"},
        {"path": "registry/blocks/data-table/lib/state.ts", "type": "registry:lib"},
        {"path": "registry/blocks/data-table/styles.css", "type": "registry:style"}
      ],
      "registryDependencies": ["button", "utils", "https://other.dev/r/badge.json"]
    }
  ]
}`

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"registry.json":                           {Data: []byte(testManifest)},
		"registry/lib/utils.ts":                   {Data: []byte("export const cn = () => ''\n")},
		"registry/ui/button.tsx":                  {Data: []byte("export function Button() {}\n")},
		"registry/blocks/data-table/table.tsx":    {Data: []byte("export function DataTable() {}\n")},
		"registry/blocks/data-table/lib/state.ts": {Data: []byte("export const state = {}\n")},
		"registry/blocks/data-table/styles.css":   {Data: []byte(".table { width: 100%; }\n")},
		"secret.env":                              {Data: []byte("TOKEN=1\n")},
	}
}

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	return New(NewFSSource(testFS()), WithLogger(slog.New(slog.DiscardHandler)))
}

func TestRegistry_Manifest(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	m, err := reg.Manifest(ctx)
	if err != nil {
		t.Fatalf("Manifest error: %v", err)
	}
	if m.Name != "acme" || m.Schema == "" || len(m.Items) != 3 {
		t.Errorf("Manifest = %+v", m)
	}
	if got := strings.Join(m.Names(), ","); got != "utils,button,data-table" {
		t.Errorf("Names() = %q", got)
	}

	again, _ := reg.Manifest(ctx)
	if again != m {
		t.Error("Manifest should be cached")
	}
}

func TestRegistry_Errors(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		fsys fstest.MapFS
		code string
	}{
		{"missing manifest", fstest.MapFS{}, "E010"},
		{"invalid json", fstest.MapFS{"registry.json": {Data: []byte("{")}}, "E011"},
		{"item without name", fstest.MapFS{"registry.json": {Data: []byte(`{"items":[{"type":"x"}]}`)}}, "E011"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := New(NewFSSource(tt.fsys), WithLogger(slog.New(slog.DiscardHandler)))
			_, err := reg.Manifest(ctx)
			if got := errors.CodeOf(err); got != tt.code {
				t.Errorf("code = %q, want %q (err %v)", got, tt.code, err)
			}
		})
	}
}

func TestRegistry_Reload(t *testing.T) {
	fsys := testFS()
	reg := New(NewFSSource(fsys), WithLogger(slog.New(slog.DiscardHandler)))
	ctx := context.Background()

	var calls []int
	reg.OnReload(func(m *Manifest) { calls = append(calls, len(m.Items)) })

	if _, err := reg.Manifest(ctx); err != nil {
		t.Fatal(err)
	}

	fsys["registry.json"] = &fstest.MapFile{Data: []byte(`{"name":"acme","items":[{"name":"only"}]}`)}
	m, err := reg.Reload(ctx)
	if err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if len(m.Items) != 1 {
		t.Errorf("items after reload = %d, want 1", len(m.Items))
	}

	fsys["registry.json"] = &fstest.MapFile{Data: []byte(`not json`)}
	if _, err := reg.Reload(ctx); err == nil {
		t.Error("Reload should fail on invalid manifest")
	}
	if cur, _ := reg.Manifest(ctx); len(cur.Items) != 1 {
		t.Error("failed reload should keep the previous manifest")
	}

	if len(calls) != 2 || calls[0] != 3 || calls[1] != 1 {
		t.Errorf("hook calls = %v, want [3 1]", calls)
	}
}

func TestRegistry_Item(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	item, err := reg.Item(ctx, "button")
	if err != nil {
		t.Fatalf("Item error: %v", err)
	}
	if item.Title != "Button" || len(item.Dependencies) != 1 || item.RegistryDependencies[0] != "utils" {
		t.Errorf("Item = %+v", item)
	}

	_, err = reg.Item(ctx, "nonexistent")
	if errors.CodeOf(err) != "E012" || errors.HTTPStatus(err) != 404 {
		t.Errorf("Item(nonexistent) error = %v", err)
	}
}

func TestRegistry_Tree(t *testing.T) {
	reg := testRegistry(t)

	root, err := reg.Tree(context.Background(), "data-table")
	if err != nil {
		t.Fatalf("Tree error: %v", err)
	}

	blocks := root.Child("blocks")
	if blocks == nil || !blocks.IsFolder() {
		t.Fatalf("root children = %v, want blocks folder", root.Children)
	}
	dt := blocks.Child("data-table")
	if dt == nil {
		t.Fatal("missing data-table folder")
	}
	var names []string
	for _, c := range dt.Children {
		names = append(names, c.Name)
	}
	if got := strings.Join(names, ","); got != "lib,styles.css,table.tsx" {
		t.Errorf("children = %q, want folders first then files", got)
	}
	if got := filetree.Find(root, "blocks/data-table/table.tsx"); got == nil || got.FullPath != "registry/blocks/data-table/table.tsx" {
		t.Errorf("Find(table.tsx) = %+v", got)
	}
}

func TestRegistry_ReadFile(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	fc, err := reg.ReadFile(ctx, "button", "ui/button.tsx")
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if fc.Path != "ui/button.tsx" || fc.Component != "button" || !strings.Contains(fc.Content, "Button") {
		t.Errorf("ReadFile = %+v", fc)
	}

	fc, err = reg.ReadFile(ctx, "button", "ui/../lib/./utils.ts")
	if err != nil || fc.Path != "lib/utils.ts" {
		t.Errorf("ReadFile(cleaned) = %+v, %v", fc, err)
	}
}

func TestRegistry_ReadFile_Errors(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	tests := []struct {
		path   string
		code   string
		status int
	}{
		{"../secret.env", "E014", 403},
		{"ui/../../secret.env", "E014", 403},
		{"/etc/passwd", "E014", 403},
		{"..\\secret.env", "E014", 403},
		{"", "E014", 403},
		{".", "E014", 403},
		{"ui/missing.tsx", "E013", 404},
		{"ui", "E015", 500},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := reg.ReadFile(ctx, "button", tt.path)
			if errors.CodeOf(err) != tt.code {
				t.Errorf("ReadFile(%q) error = %v, want %s", tt.path, err, tt.code)
			}
			if got := errors.HTTPStatus(err); got != tt.status {
				t.Errorf("HTTPStatus = %d, want %d", got, tt.status)
			}
		})
	}
}

func TestCleanPath(t *testing.T) {
	tests := []struct {
		in, want string
		ok       bool
	}{
		{"a/b.ts", "a/b.ts", true},
		{"a//b.ts", "a/b.ts", true},
		{"a/./b/../c.ts", "a/c.ts", true},
		{"a/..", "", false},
		{"../a", "", false},
		{"/a", "", false},
	}
	for _, tt := range tests {
		got, err := CleanPath(tt.in)
		if (err == nil) != tt.ok || got != tt.want {
			t.Errorf("CleanPath(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestResolveDependencies(t *testing.T) {
	m, err := ParseManifest([]byte(testManifest))
	if err != nil {
		t.Fatal(err)
	}

	names := func(items []*Item) string {
		var s []string
		for _, it := range items {
			s = append(s, it.Name)
		}
		return strings.Join(s, ",")
	}

	tests := []struct {
		in   []string
		want string
	}{
		{[]string{"utils"}, "utils"},
		{[]string{"button"}, "utils,button"},
		{[]string{"data-table"}, "utils,button,data-table"},
		{[]string{"data-table", "button", "utils"}, "utils,button,data-table"},
		{[]string{"utils", "data-table"}, "utils,button,data-table"},
	}
	for _, tt := range tests {
		order, err := ResolveDependencies(m, tt.in)
		if err != nil {
			t.Fatalf("ResolveDependencies(%v) error: %v", tt.in, err)
		}
		if got := names(order); got != tt.want {
			t.Errorf("ResolveDependencies(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestResolveDependencies_Errors(t *testing.T) {
	m := &Manifest{Items: []Item{
		{Name: "a", RegistryDependencies: []string{"b"}},
		{Name: "b", RegistryDependencies: []string{"a"}},
		{Name: "c", RegistryDependencies: []string{"missing"}},
	}}

	if _, err := ResolveDependencies(m, []string{"nonexistent"}); errors.CodeOf(err) != "E012" {
		t.Errorf("unknown item error = %v, want E012", err)
	}
	_, err := ResolveDependencies(m, []string{"c"})
	if errors.CodeOf(err) != "E012" || !strings.Contains(err.Error(), "missing") {
		t.Errorf("unknown dependency error = %v", err)
	}
	if _, err := ResolveDependencies(m, []string{"a"}); errors.CodeOf(err) != "E011" {
		t.Errorf("cycle error = %v, want E011", err)
	}
}

func TestFile_Destination(t *testing.T) {
	tests := []struct {
		file      File
		rel, dest string
	}{
		{File{Path: "registry/ui/button.tsx"}, "ui/button.tsx", "ui/button.tsx"},
		{File{Path: "/registry/ui/button.tsx"}, "ui/button.tsx", "ui/button.tsx"},
		{File{Path: "registry/lib/utils.ts", Target: "lib/utils.ts"}, "lib/utils.ts", "lib/utils.ts"},
		{File{Path: "components/x.tsx", Target: "app/x.tsx"}, "components/x.tsx", "app/x.tsx"},
	}
	for _, tt := range tests {
		if got := tt.file.RelPath(); got != tt.rel {
			t.Errorf("RelPath(%q) = %q, want %q", tt.file.Path, got, tt.rel)
		}
		if got := tt.file.Destination(); got != tt.dest {
			t.Errorf("Destination(%q) = %q, want %q", tt.file.Path, got, tt.dest)
		}
	}
}

type fakeS3 struct {
	objects map[string]string
	keys    []string
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.keys = append(f.keys, *in.Bucket+"/"+*in.Key)
	body, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader([]byte(body)))}, nil
}

func TestS3Source(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{
		"v1/registry.json":          testManifest,
		"v1/registry/ui/button.tsx": "export function Button() {}\n",
	}}
	reg := New(NewS3Source(fake, "ui-assets", "v1/"), WithLogger(slog.New(slog.DiscardHandler)))
	ctx := context.Background()

	if _, err := reg.Item(ctx, "button"); err != nil {
		t.Fatalf("Item error: %v", err)
	}
	fc, err := reg.ReadFile(ctx, "button", "ui/button.tsx")
	if err != nil || !strings.Contains(fc.Content, "Button") {
		t.Fatalf("ReadFile = %+v, %v", fc, err)
	}
	if _, err := reg.ReadFile(ctx, "button", "ui/missing.tsx"); errors.CodeOf(err) != "E013" {
		t.Errorf("missing object error = %v, want E013", err)
	}

	want := []string{"ui-assets/v1/registry.json", "ui-assets/v1/registry/ui/button.tsx", "ui-assets/v1/registry/ui/missing.tsx"}
	if strings.Join(fake.keys, " ") != strings.Join(want, " ") {
		t.Errorf("keys = %v, want %v", fake.keys, want)
	}

	empty := New(NewS3Source(&fakeS3{}, "b", ""), WithLogger(slog.New(slog.DiscardHandler)))
	if _, err := empty.Manifest(ctx); errors.CodeOf(err) != "E010" {
		t.Errorf("missing manifest error = %v, want E010", err)
	}
}

func TestDirSource(t *testing.T) {
	src := NewDirSource(t.TempDir())
	if src.Dir() == "" {
		t.Error("Dir() should be set for directory sources")
	}
	if NewFSSource(testFS()).Dir() != "" {
		t.Error("Dir() should be empty for fs.FS sources")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewFSSource(testFS()).ReadManifest(ctx); err == nil || err == fs.ErrNotExist {
		t.Errorf("ReadManifest(canceled) error = %v, want context error", err)
	}
}
