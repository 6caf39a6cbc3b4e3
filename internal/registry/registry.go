package registry

import (
	"context"
	stderrors "errors"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/vango-dev/uiregistry/internal/errors"
	"github.com/vango-dev/uiregistry/pkg/filetree"
)

// Registry serves manifest and file content from a Source. The manifest is
// cached after the first successful load and replaced on Reload.
type Registry struct {
	source Source
	prefix string
	logger *slog.Logger

	mu       sync.RWMutex
	manifest *Manifest
	hooks    []func(*Manifest)
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = l
	}
}

// WithTreePrefix sets the leading path segment hidden from file trees.
func WithTreePrefix(prefix string) Option {
	return func(r *Registry) {
		r.prefix = prefix
	}
}

// New creates a Registry over source.
func New(source Source, opts ...Option) *Registry {
	r := &Registry{
		source: source,
		prefix: filetree.DefaultPrefix,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Source returns the underlying source.
func (r *Registry) Source() Source {
	return r.source
}

// OnReload registers fn to run after every successful reload.
func (r *Registry) OnReload(fn func(*Manifest)) {
	r.mu.Lock()
	r.hooks = append(r.hooks, fn)
	r.mu.Unlock()
}

// Manifest returns the cached manifest, loading it on first use.
func (r *Registry) Manifest(ctx context.Context) (*Manifest, error) {
	r.mu.RLock()
	m := r.manifest
	r.mu.RUnlock()
	if m != nil {
		return m, nil
	}
	return r.Reload(ctx)
}

// Reload reads the manifest from the source and replaces the cached copy.
// On failure the previous manifest stays in place.
func (r *Registry) Reload(ctx context.Context) (*Manifest, error) {
	data, err := r.source.ReadManifest(ctx)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.New("E010").
				WithSuggestion("Check registry.dir or registry.s3 in uiregistry.yaml").
				Wrap(err)
		}
		return nil, errors.New("E015").WithResource(ManifestName).Wrap(err)
	}

	m, err := ParseManifest(data)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.manifest = m
	hooks := slices.Clone(r.hooks)
	r.mu.Unlock()

	r.logger.Info("registry loaded", "name", m.Name, "items", len(m.Items))
	for _, fn := range hooks {
		fn(m)
	}
	return m, nil
}

// Items returns all manifest items.
func (r *Registry) Items(ctx context.Context) ([]Item, error) {
	m, err := r.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	return m.Items, nil
}

// Item returns the named item.
func (r *Registry) Item(ctx context.Context, name string) (*Item, error) {
	m, err := r.Manifest(ctx)
	if err != nil {
		return nil, err
	}
	item, ok := m.Item(name)
	if !ok {
		return nil, errors.New("E012").WithResource(name)
	}
	return item, nil
}

// Tree returns the file tree of the named item.
func (r *Registry) Tree(ctx context.Context, name string) (*filetree.Node, error) {
	item, err := r.Item(ctx, name)
	if err != nil {
		return nil, err
	}
	return filetree.Build(item.Paths(), filetree.WithPrefix(r.prefix)), nil
}

// ReadFile returns a file below the registry files directory. component is
// echoed in the result. Paths that leave the directory fail with E014.
func (r *Registry) ReadFile(ctx context.Context, component, p string) (*FileContent, error) {
	clean, err := CleanPath(p)
	if err != nil {
		return nil, err
	}

	data, err := r.source.ReadFile(ctx, clean)
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			r.logger.Debug("registry file not found", "path", clean)
			return nil, errors.New("E013").WithResource(clean)
		}
		return nil, errors.New("E015").WithResource(clean).Wrap(err)
	}

	return &FileContent{
		Content:   string(data),
		Path:      clean,
		Component: component,
	}, nil
}

// CleanPath normalizes a request path relative to the files directory.
// Empty, absolute and escaping paths fail with E014.
func CleanPath(p string) (string, error) {
	if p == "" || strings.HasPrefix(p, "/") || strings.ContainsRune(p, '\\') {
		return "", errors.New("E014").WithResource(p)
	}
	clean := path.Clean(p)
	if clean == "." || !fs.ValidPath(clean) {
		return "", errors.New("E014").WithResource(p)
	}
	return clean, nil
}
