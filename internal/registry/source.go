package registry

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/vango-dev/uiregistry/internal/config"
)

// Source provides raw registry content. Missing content is reported with an
// error wrapping fs.ErrNotExist.
type Source interface {
	// ReadManifest returns the bytes of registry.json.
	ReadManifest(ctx context.Context) ([]byte, error)

	// ReadFile returns a file below the registry files directory. p is a
	// cleaned, slash-separated relative path.
	ReadFile(ctx context.Context, p string) ([]byte, error)
}

// FSSource reads a registry laid out as registry.json plus a registry/
// directory inside an fs.FS.
type FSSource struct {
	fsys fs.FS
	dir  string
}

// NewFSSource creates a source over fsys.
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// NewDirSource creates a source over a directory on disk.
func NewDirSource(dir string) *FSSource {
	return &FSSource{fsys: os.DirFS(dir), dir: dir}
}

// Dir returns the directory on disk, or "" when the source is not
// backed by one.
func (s *FSSource) Dir() string {
	return s.dir
}

// ReadManifest implements Source.
func (s *FSSource) ReadManifest(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fs.ReadFile(s.fsys, ManifestName)
}

// ReadFile implements Source.
func (s *FSSource) ReadFile(ctx context.Context, p string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return fs.ReadFile(s.fsys, path.Join(FilesDir, p))
}

// ObjectGetter is the subset of the S3 client used by S3Source.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads a registry from an S3 bucket. Keys are
// <prefix>registry.json and <prefix>registry/<path>.
type S3Source struct {
	client ObjectGetter
	bucket string
	prefix string
}

// NewS3Source creates a source over bucket. prefix is prepended verbatim to
// every key, so it usually ends with "/".
func NewS3Source(client ObjectGetter, bucket, prefix string) *S3Source {
	return &S3Source{client: client, bucket: bucket, prefix: prefix}
}

// NewS3Client builds an S3 client from configuration. Without an access key
// requests are anonymous, which suits public buckets.
func NewS3Client(cfg config.S3Config) *s3.Client {
	opts := s3.Options{
		Region:       cfg.Region,
		UsePathStyle: cfg.PathStyle,
		Credentials:  aws.AnonymousCredentials{},
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	if cfg.AccessKeyID != "" {
		creds := aws.Credentials{
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			Source:          "uiregistry",
		}
		opts.Credentials = aws.NewCredentialsCache(aws.CredentialsProviderFunc(
			func(context.Context) (aws.Credentials, error) { return creds, nil },
		))
	}
	return s3.New(opts)
}

// ReadManifest implements Source.
func (s *S3Source) ReadManifest(ctx context.Context) ([]byte, error) {
	return s.get(ctx, s.prefix+ManifestName)
}

// ReadFile implements Source.
func (s *S3Source) ReadFile(ctx context.Context, p string) ([]byte, error) {
	return s.get(ctx, s.prefix+FilesDir+"/"+p)
}

func (s *S3Source) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, fmt.Errorf("s3://%s/%s: %w", s.bucket, key, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("s3 get %s: %w", key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	if stderrors.As(err, &nsk) {
		return true
	}
	var coded interface{ ErrorCode() string }
	if stderrors.As(err, &coded) {
		switch coded.ErrorCode() {
		case "NoSuchKey", "NotFound":
			return true
		}
	}
	return false
}
