package patch

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileSystem is the storage surface the applier edits. Files are exchanged
// as line slices without terminators plus a flag for the final newline, so
// the newline-at-end-of-file state survives a read/write round trip.
type FileSystem interface {
	// ReadLines loads a file as lines plus its final-newline state.
	ReadLines(path string) ([]string, bool, error)
	// WriteLines replaces a file, creating parent directories as needed.
	// A zero mode means "default permissions" for new files.
	WriteLines(path string, lines []string, finalNewline bool, mode fs.FileMode) error
	// Remove unlinks a file.
	Remove(path string) error
	// Rename moves a file, creating the destination's parents as needed.
	Rename(oldPath, newPath string) error
	// Stat returns a file's mode bits; absence surfaces as fs.ErrNotExist.
	Stat(path string) (fs.FileMode, error)
	// Chmod updates a file's permission bits.
	Chmod(path string, mode fs.FileMode) error
}

// NewOSFileSystem returns a FileSystem backed by the process's real
// filesystem, with paths resolved as given.
func NewOSFileSystem() FileSystem {
	return &osFileSystem{}
}

// NewRootedFileSystem returns a FileSystem that resolves every path inside
// root, the way -d scopes a run to a build tree.
func NewRootedFileSystem(root string) FileSystem {
	return &osFileSystem{root: root}
}

type osFileSystem struct {
	root string
}

func (o *osFileSystem) resolve(path string) string {
	if o.root == "" {
		return path
	}
	return filepath.Join(o.root, path)
}

func (o *osFileSystem) ReadLines(path string) ([]string, bool, error) {
	data, err := os.ReadFile(o.resolve(path))
	if err != nil {
		return nil, false, err
	}
	lines, finalNewline := splitLines(data)
	return lines, finalNewline, nil
}

func (o *osFileSystem) WriteLines(path string, lines []string, finalNewline bool, mode fs.FileMode) error {
	abs := o.resolve(path)
	if dir := filepath.Dir(abs); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	perm := mode.Perm()
	if mode == 0 {
		perm = 0o644
	}
	return os.WriteFile(abs, joinLines(lines, finalNewline), perm)
}

func (o *osFileSystem) Remove(path string) error {
	return os.Remove(o.resolve(path))
}

func (o *osFileSystem) Rename(oldPath, newPath string) error {
	abs := o.resolve(newPath)
	if dir := filepath.Dir(abs); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.Rename(o.resolve(oldPath), abs)
}

func (o *osFileSystem) Stat(path string) (fs.FileMode, error) {
	info, err := os.Stat(o.resolve(path))
	if err != nil {
		return 0, err
	}
	return info.Mode(), nil
}

func (o *osFileSystem) Chmod(path string, mode fs.FileMode) error {
	return os.Chmod(o.resolve(path), mode.Perm())
}

// splitLines breaks file content into terminator-free lines and reports
// whether the content ended with a newline. The inverse is joinLines; the
// pair loses nothing, including carriage returns and trailing empty lines.
func splitLines(data []byte) ([]string, bool) {
	if len(data) == 0 {
		return []string{}, true
	}
	s := string(data)
	finalNewline := strings.HasSuffix(s, "\n")
	if finalNewline {
		s = s[:len(s)-1]
	}
	return strings.Split(s, "\n"), finalNewline
}

func joinLines(lines []string, finalNewline bool) []byte {
	if len(lines) == 0 {
		return []byte{}
	}
	s := strings.Join(lines, "\n")
	if finalNewline {
		s += "\n"
	}
	return []byte(s)
}
