package stage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestResolveDest(t *testing.T) {
	if got, want := ResolveDest("", "/tmp/build123"), filepath.Join("/tmp/build123", "install"); got != want {
		t.Errorf("ResolveDest(\"\") = %q, want %q", got, want)
	}
	if got := ResolveDest("/srv/hdps", "/tmp/build123"); got != "/srv/hdps" {
		t.Errorf("ResolveDest(override) = %q, want %q", got, "/srv/hdps")
	}
}

func newTree(t *testing.T) string {
	t.Helper()
	src := t.TempDir()
	if err := os.MkdirAll(filepath.Join(src, "Debug", "lib"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "Debug", "lib", "core.lib"), []byte("core"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "conaninfo.txt"), []byte("info"), 0o644); err != nil {
		t.Fatal(err)
	}
	return src
}

func TestStage(t *testing.T) {
	src := newTree(t)
	dst := filepath.Join(t.TempDir(), "build", "install")

	if err := Stage(src, dst); err != nil {
		t.Fatalf("Stage failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dst, "Debug", "lib", "core.lib"))
	if err != nil {
		t.Fatalf("staged file missing: %v", err)
	}
	if string(data) != "core" {
		t.Errorf("core.lib = %q, want %q", data, "core")
	}
	if _, err := os.Stat(filepath.Join(dst, "conaninfo.txt")); err != nil {
		t.Errorf("conaninfo.txt not staged: %v", err)
	}
}

func TestStageKeepsSymlinks(t *testing.T) {
	src := newTree(t)
	lib := filepath.Join(src, "lib")
	if err := os.MkdirAll(lib, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(lib, "libHDPS_Public.so.1"), []byte("elf"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink("libHDPS_Public.so.1", filepath.Join(lib, "libHDPS_Public.so")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	dst := filepath.Join(t.TempDir(), "install")
	if err := Stage(src, dst); err != nil {
		t.Fatalf("Stage failed: %v", err)
	}

	link := filepath.Join(dst, "lib", "libHDPS_Public.so")
	fi, err := os.Lstat(link)
	if err != nil {
		t.Fatalf("symlink not staged: %v", err)
	}
	if fi.Mode()&os.ModeSymlink == 0 {
		t.Fatalf("%s is %v, want a symlink", link, fi.Mode())
	}
	target, err := os.Readlink(link)
	if err != nil {
		t.Fatal(err)
	}
	if target != "libHDPS_Public.so.1" {
		t.Errorf("link target = %q, want %q", target, "libHDPS_Public.so.1")
	}
	data, err := os.ReadFile(link)
	if err != nil || string(data) != "elf" {
		t.Errorf("reading through link = %q, %v", data, err)
	}
}

func TestStageRefusesExisting(t *testing.T) {
	src := newTree(t)
	dst := filepath.Join(t.TempDir(), "install")

	if err := Stage(src, dst); err != nil {
		t.Fatalf("first Stage failed: %v", err)
	}
	if err := Stage(src, dst); !errors.Is(err, ErrStaging) {
		t.Errorf("second Stage = %v, want ErrStaging", err)
	}
}

func TestStageMissingSource(t *testing.T) {
	err := Stage(filepath.Join(t.TempDir(), "absent"), filepath.Join(t.TempDir(), "install"))
	if !errors.Is(err, ErrStaging) {
		t.Errorf("missing source: got %v, want ErrStaging", err)
	}

	file := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	err = Stage(file, filepath.Join(t.TempDir(), "install"))
	if !errors.Is(err, ErrStaging) {
		t.Errorf("file source: got %v, want ErrStaging", err)
	}
}
