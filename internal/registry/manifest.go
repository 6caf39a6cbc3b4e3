package registry

import (
	"encoding/json"
	"strings"

	"github.com/vango-dev/uiregistry/internal/errors"
)

// FilesDir is the directory, relative to the manifest, holding item sources.
// Manifest file paths start with it.
const FilesDir = "registry"

// ManifestName is the manifest file name.
const ManifestName = "registry.json"

// Manifest is the parsed registry.json.
type Manifest struct {
	Schema   string `json:"$schema,omitempty"`
	Name     string `json:"name"`
	Homepage string `json:"homepage,omitempty"`
	Items    []Item `json:"items"`
}

// Item is one installable registry entry.
type Item struct {
	Name                 string   `json:"name"`
	Type                 string   `json:"type"`
	Title                string   `json:"title"`
	Description          string   `json:"description"`
	Files                []File   `json:"files"`
	Dependencies         []string `json:"dependencies,omitempty"`
	RegistryDependencies []string `json:"registryDependencies,omitempty"`
}

// File is a source file belonging to an item.
type File struct {
	Path   string `json:"path"`
	Type   string `json:"type"`
	Target string `json:"target,omitempty"`
}

// FileContent is the response body of the files endpoint.
type FileContent struct {
	Content   string `json:"content"`
	Path      string `json:"path"`
	Component string `json:"component"`
}

// ParseManifest decodes registry.json.
func ParseManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.New("E011").
			WithDetail("Invalid registry manifest: " + err.Error())
	}
	for i, item := range m.Items {
		if item.Name == "" {
			return nil, errors.New("E011").
				WithDetailf("items[%d] has no name", i)
		}
	}
	return &m, nil
}

// Item returns the item with the given name.
func (m *Manifest) Item(name string) (*Item, bool) {
	for i := range m.Items {
		if m.Items[i].Name == name {
			return &m.Items[i], true
		}
	}
	return nil, false
}

// Names returns item names in manifest order.
func (m *Manifest) Names() []string {
	names := make([]string, len(m.Items))
	for i, item := range m.Items {
		names[i] = item.Name
	}
	return names
}

// Paths returns the item's file paths in manifest order.
func (it *Item) Paths() []string {
	paths := make([]string, len(it.Files))
	for i, f := range it.Files {
		paths[i] = f.Path
	}
	return paths
}

// RelPath returns the file path relative to FilesDir.
func (f File) RelPath() string {
	return strings.TrimPrefix(strings.TrimPrefix(f.Path, "/"), FilesDir+"/")
}

// Destination returns where the file is installed: Target if set,
// otherwise the path relative to FilesDir.
func (f File) Destination() string {
	if f.Target != "" {
		return f.Target
	}
	return f.RelPath()
}
