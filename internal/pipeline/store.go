package pipeline

import (
	"path/filepath"

	"github.com/goplus/plugpack/internal/config"
	"github.com/goplus/plugpack/internal/env"
	"github.com/goplus/plugpack/internal/locate"
)

// OpenStore opens the package store described by c: the S3 bucket when one
// is configured, with downloads cached below the user cache, otherwise the local store directory, which defaults to the
// packages directory of the user cache.
func OpenStore(c config.Store) (locate.Locator, Publisher, error) {
	if c.S3.Enabled() {
		cache, err := env.CacheDir()
		if err != nil {
			return nil, nil, err
		}
		cache = filepath.Join(cache, "s3")
		s, err := locate.NewS3Store(locate.S3Config{
			Endpoint:  c.S3.Endpoint,
			Region:    c.S3.Region,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
			Bucket:    c.S3.Bucket,
			UseSSL:    c.S3.UseSSL,
		}, cache)
		if err != nil {
			return nil, nil, err
		}
		return s, s, nil
	}

	dir := c.Dir
	if dir == "" {
		var err error
		if dir, err = env.PackagesDir(); err != nil {
			return nil, nil, err
		}
	}
	s := locate.NewStore(dir)
	return s, s, nil
}
