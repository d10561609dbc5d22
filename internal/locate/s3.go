package locate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/goplus/plugpack/mod/module"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config describes an S3-compatible package bucket.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// S3Store locates packages in a bucket laid out as <name>/<version>/<files>.
// Located packages are downloaded once into a local cache.
type S3Store struct {
	client   *minio.Client
	bucket   string
	cacheDir string
}

var _ Locator = (*S3Store)(nil)

// NewS3Store returns a store reading cfg's bucket and caching into cacheDir.
func NewS3Store(cfg S3Config, cacheDir string) (*S3Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Store{client: client, bucket: bucket, cacheDir: cacheDir}, nil
}

// Locate picks the best version in the bucket and returns its cached copy.
func (s *S3Store) Locate(ctx context.Context, req module.Requirement) (Package, error) {
	var keys []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: req.Name + "/"}) {
		if obj.Err != nil {
			return Package{}, fmt.Errorf("list %s: %w", req.Name, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	ver, err := Select(versionsOf(req.Name, keys), req.Constraint)
	if err != nil {
		return Package{}, fmt.Errorf("%s: %w", req, err)
	}

	v := module.Version{Path: req.Name, Version: ver}
	root, err := s.fetch(ctx, v)
	if err != nil {
		return Package{}, err
	}
	return Package{Version: v, Root: root}, nil
}

// fetch downloads v into the cache unless a complete copy is already there.
func (s *S3Store) fetch(ctx context.Context, v module.Version) (string, error) {
	escaped, err := module.EscapePath(v.Path)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(s.cacheDir, escaped, v.Version)
	if _, err := os.Stat(dest); err == nil {
		return dest, nil
	}

	partial := dest + ".partial"
	if err := os.RemoveAll(partial); err != nil {
		return "", err
	}
	prefix := objectKey(v, "")
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return "", fmt.Errorf("list %s: %w", v, obj.Err)
		}
		rel := strings.TrimPrefix(obj.Key, prefix)
		if rel == "" || strings.HasSuffix(rel, "/") {
			continue
		}
		local, err := filepath.Localize(rel)
		if err != nil {
			return "", fmt.Errorf("object %s: %w", obj.Key, err)
		}
		if err := s.client.FGetObject(ctx, s.bucket, obj.Key, filepath.Join(partial, local), minio.GetObjectOptions{}); err != nil {
			return "", fmt.Errorf("download %s: %w", obj.Key, err)
		}
	}
	if _, err := os.Stat(partial); errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s has no files", ErrNotFound, v)
	}
	if err := os.Rename(partial, dest); err != nil {
		return "", err
	}
	return dest, nil
}

// Upload publishes the tree at dir as package v.
func (s *S3Store) Upload(ctx context.Context, v module.Version, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		key := objectKey(v, rel)
		if _, err := s.client.FPutObject(ctx, s.bucket, key, p, minio.PutObjectOptions{
			ContentType: "application/octet-stream",
		}); err != nil {
			return fmt.Errorf("upload %s: %w", key, err)
		}
		return nil
	})
}

// objectKey returns the key of rel inside package v; an empty rel yields
// the package prefix.
func objectKey(v module.Version, rel string) string {
	if rel == "" {
		return v.Path + "/" + v.Version + "/"
	}
	return path.Join(v.Path, v.Version, filepath.ToSlash(rel))
}

// versionsOf extracts version names from the keys listed under "<name>/".
func versionsOf(name string, keys []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, k := range keys {
		rest, ok := strings.CutPrefix(k, name+"/")
		if !ok {
			continue
		}
		ver, _, _ := strings.Cut(rest, "/")
		if ver == "" || seen[ver] {
			continue
		}
		seen[ver] = true
		out = append(out, ver)
	}
	return out
}
