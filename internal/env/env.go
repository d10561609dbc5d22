package env

import (
	"os"
	"path/filepath"
)

// CacheDirEnv overrides the cache directory.
const CacheDirEnv = "PLUGPACK_CACHE"

// CacheDir returns the directory holding downloaded packages, creating it
// with 0700 permissions if needed. It defaults to <UserCacheDir>/.plugpack.
func CacheDir() (string, error) {
	dir := os.Getenv(CacheDirEnv)
	if dir == "" {
		userCacheDir, err := os.UserCacheDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(userCacheDir, ".plugpack")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	return dir, nil
}

// PackagesDir returns the default local package store, <CacheDir>/packages.
func PackagesDir() (string, error) {
	dir, err := CacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "packages"), nil
}
