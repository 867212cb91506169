package scenario

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FixtureProvider prepares the data a scenario starts from.
type FixtureProvider interface {
	Prepare(desc Descriptor) error
}

// NopFixtures leaves the data directory untouched.
type NopFixtures struct{}

// Prepare does nothing.
func (NopFixtures) Prepare(Descriptor) error { return nil }

// DirFixtures looks for <Root>/<fixture>.zip, then the directory
// <Root>/<fixture>, and replaces Target with its contents.
type DirFixtures struct {
	Root   string
	Target string
	Logger *zap.Logger
}

// Locate returns the fixture path for desc, or "" when there is none.
func (f DirFixtures) Locate(desc Descriptor) string {
	if f.Root == "" {
		return ""
	}
	name := desc.FixtureName()
	zipPath := filepath.Join(f.Root, name+".zip")
	if info, err := os.Stat(zipPath); err == nil && !info.IsDir() {
		return zipPath
	}
	dirPath := filepath.Join(f.Root, name)
	if info, err := os.Stat(dirPath); err == nil && info.IsDir() {
		return dirPath
	}
	return ""
}

// Prepare installs the fixture for desc.
func (f DirFixtures) Prepare(desc Descriptor) error {
	log := f.Logger
	if log == nil {
		log = zap.NewNop()
	}
	sugar := log.Sugar()

	if desc.DataMode == DataUseCurrent {
		sugar.Infof("[UITEST] DataMode=UseCurrent, using existing data")
		return nil
	}
	src := f.Locate(desc)
	if src == "" {
		sugar.Infof("[UITEST] No test data found, using existing data")
		return nil
	}
	if f.Target == "" {
		return errors.New("fixture target directory is not set")
	}

	if err := os.RemoveAll(f.Target); err != nil {
		return fmt.Errorf("clear %s: %w", f.Target, err)
	}
	if strings.EqualFold(filepath.Ext(src), ".zip") {
		if err := extractZip(src, f.Target); err != nil {
			return fmt.Errorf("extract %s: %w", src, err)
		}
		sugar.Infof("[UITEST] Extracted test data from: %s", src)
		return nil
	}
	if err := copyDir(src, f.Target); err != nil {
		return fmt.Errorf("copy %s: %w", src, err)
	}
	sugar.Infof("[UITEST] Copied test data from: %s", src)
	return nil
}

func extractZip(src, dst string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	for _, zf := range r.File {
		target := filepath.Join(dst, filepath.FromSlash(zf.Name))
		if !strings.HasPrefix(target, filepath.Clean(dst)+string(os.PathSeparator)) {
			return fmt.Errorf("entry %q escapes the target directory", zf.Name)
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := writeZipEntry(zf, target); err != nil {
			return err
		}
	}
	return nil
}

func writeZipEntry(zf *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	in, err := zf.Open()
	if err != nil {
		return err
	}
	defer in.Close()
	return writeFile(target, in)
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		in, err := os.Open(path) //#nosec G304 -- fixture file under the configured root
		if err != nil {
			return err
		}
		defer in.Close()
		return writeFile(target, in)
	})
}

func writeFile(path string, r io.Reader) error {
	out, err := os.Create(path) //#nosec G304 -- path is inside the fixture target
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
