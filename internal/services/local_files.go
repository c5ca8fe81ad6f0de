package services

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/kjk/common/atomicfile"
)

// LocalFiles maps CMS keys onto JSON files in a directory: cms:bio is
// <dir>/bio.json, cms:projects is <dir>/projects.json and so on.
type LocalFiles struct {
	dir string
}

func NewLocalFiles(dir string) *LocalFiles {
	return &LocalFiles{dir: dir}
}

func (f *LocalFiles) Path(key string) string {
	name := strings.TrimPrefix(key, "cms:")
	return filepath.Join(f.dir, name+".json")
}

func (f *LocalFiles) Read(key string) ([]byte, error) {
	if f == nil || f.dir == "" {
		return nil, fs.ErrNotExist
	}
	return os.ReadFile(f.Path(key))
}

// Write replaces the file for key atomically, creating the directory if needed.
func (f *LocalFiles) Write(key string, data []byte) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return err
	}
	dst := f.Path(key)
	af, err := atomicfile.New(dst)
	if err != nil {
		return err
	}
	defer af.RemoveIfNotClosed()

	if _, err := af.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return af.Close()
}
