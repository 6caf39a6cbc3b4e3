package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/vango-dev/uiregistry/internal/errors"
)

// Client talks to a registry server.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// FetchManifest downloads the registry manifest.
func (c *Client) FetchManifest(ctx context.Context) (*Manifest, error) {
	var m Manifest
	if err := c.getJSON(ctx, "/api/registry", "E010", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// FetchItem downloads a single item.
func (c *Client) FetchItem(ctx context.Context, name string) (*Item, error) {
	var item Item
	if err := c.getJSON(ctx, "/api/registry/"+url.PathEscape(name), "E012", &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// FetchFile downloads a file of component. filePath may be a manifest path;
// its leading registry/ segment is removed.
func (c *Client) FetchFile(ctx context.Context, component, filePath string) (*FileContent, error) {
	rel := File{Path: filePath}.RelPath()
	segs := strings.Split(rel, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	endpoint := "/api/registry/" + url.PathEscape(component) + "/files/" + strings.Join(segs, "/")

	var fc FileContent
	if err := c.getJSON(ctx, endpoint, "E013", &fc); err != nil {
		return nil, err
	}
	return &fc, nil
}

// getJSON decodes a 200 response into v. A 404 becomes notFound; other
// statuses become E021 carrying the server's error message.
func (c *Client) getJSON(ctx context.Context, endpoint, notFound string, v any) error {
	u := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.New("E020").WithResource(u).Wrap(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.New("E020").
			WithResource(c.baseURL).
			WithDetail("Could not connect to registry: " + err.Error()).
			WithSuggestion("Check that the registry server is running and registry.remote is correct")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&body)
		if resp.StatusCode == http.StatusNotFound {
			e := errors.New(notFound).WithResource(strings.TrimPrefix(endpoint, "/api/registry/"))
			if body.Error != "" {
				e = e.WithDetail(body.Error)
			}
			return e
		}
		detail := fmt.Sprintf("Registry returned status %d", resp.StatusCode)
		if body.Error != "" {
			detail += ": " + body.Error
		}
		return errors.New("E021").WithResource(u).WithDetail(detail)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return errors.New("E021").
			WithResource(u).
			WithDetail("Invalid response: " + err.Error())
	}
	return nil
}

// InstallOptions controls Install.
type InstallOptions struct {
	// Dir is the project directory files are written into.
	Dir string

	// Force overwrites files with local modifications.
	Force bool
}

// InstallStatus describes what Install did with a file.
type InstallStatus string

const (
	StatusCreated   InstallStatus = "created"
	StatusUpdated   InstallStatus = "updated"
	StatusUnchanged InstallStatus = "unchanged"
	StatusSkipped   InstallStatus = "skipped"
)

// InstalledFile reports one file handled by Install.
type InstalledFile struct {
	Component string
	Path      string
	Status    InstallStatus

	// Err explains a skipped file.
	Err error
}

// Install downloads names and their registry dependencies into opts.Dir.
// Each file is written with a provenance header. A file edited since it was
// installed is skipped with E022 unless opts.Force is set.
func (c *Client) Install(ctx context.Context, names []string, opts InstallOptions) ([]InstalledFile, error) {
	manifest, err := c.FetchManifest(ctx)
	if err != nil {
		return nil, err
	}

	items, err := ResolveDependencies(manifest, names)
	if err != nil {
		return nil, err
	}

	dir := opts.Dir
	if dir == "" {
		dir = "."
	}

	var results []InstalledFile
	for _, item := range items {
		for _, f := range item.Files {
			res, err := c.installFile(ctx, dir, item.Name, f, opts.Force)
			if err != nil {
				return results, err
			}
			c.logger.Debug("installed file", "component", res.Component, "path", res.Path, "status", res.Status)
			results = append(results, res)
		}
	}
	return results, nil
}

func (c *Client) installFile(ctx context.Context, dir, component string, f File, force bool) (InstalledFile, error) {
	dest := filepath.FromSlash(f.Destination())
	res := InstalledFile{Component: component, Path: dest}
	if !filepath.IsLocal(dest) {
		return res, errors.New("E014").
			WithResource(f.Destination()).
			WithDetail("Install targets must stay inside the project directory")
	}

	fc, err := c.FetchFile(ctx, component, f.Path)
	if err != nil {
		return res, err
	}

	checksum := Checksum(fc.Content)
	content := header(dest, c.baseURL+"/api/registry/"+component, checksum) + fc.Content

	outputPath := filepath.Join(dir, dest)
	existing, err := os.ReadFile(outputPath)
	switch {
	case err == nil:
		if string(existing) == content {
			res.Status = StatusUnchanged
			return res, nil
		}
		if !force && Modified(string(existing)) {
			res.Status = StatusSkipped
			res.Err = errors.New("E022").WithResource(dest)
			return res, nil
		}
		res.Status = StatusUpdated
	case os.IsNotExist(err):
		res.Status = StatusCreated
	default:
		return res, err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return res, err
	}
	if err := os.WriteFile(outputPath, []byte(content), 0644); err != nil {
		return res, err
	}
	return res, nil
}

// Checksum returns the hex sha256 of content.
func Checksum(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

var headerRe = regexp.MustCompile(`^(?://|/\*|<!--) Source: [^\n]*\n(?://|/\*|<!--) Checksum: sha256:([a-f0-9]{64})[^\n]*\n\n`)

// header returns the provenance comment for a file, or "" for formats
// without comments.
func header(name, source, checksum string) string {
	start, end := "// ", ""
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json":
		return ""
	case ".css":
		start, end = "/* ", " */"
	case ".md", ".mdx", ".html":
		start, end = "<!-- ", " -->"
	}
	return fmt.Sprintf("%sSource: %s%s\n%sChecksum: sha256:%s%s\n\n", start, source, end, start, checksum, end)
}

// ParseHeader splits an installed file into its recorded checksum and body.
// Files without a header return an empty checksum and the whole content.
func ParseHeader(content string) (checksum, body string) {
	m := headerRe.FindStringSubmatchIndex(content)
	if m == nil {
		return "", content
	}
	return content[m[2]:m[3]], content[m[1]:]
}

// Modified reports whether an installed file differs from what was
// installed. Files without a header are treated as modified.
func Modified(content string) bool {
	checksum, body := ParseHeader(content)
	return checksum == "" || Checksum(body) != checksum
}
