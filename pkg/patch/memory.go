package patch

import "io/fs"

// MemoryFileSystem keeps files in memory. It backs tests and embedders that
// want to preview a patch without touching disk; the applier treats it
// exactly like the real filesystem.
type MemoryFileSystem struct {
	files map[string]*memoryFile
}

type memoryFile struct {
	lines        []string
	finalNewline bool
	mode         fs.FileMode
}

// NewMemoryFileSystem returns an empty in-memory filesystem.
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{files: make(map[string]*memoryFile)}
}

func (m *MemoryFileSystem) notExist(op, path string) error {
	return &fs.PathError{Op: op, Path: path, Err: fs.ErrNotExist}
}

func (m *MemoryFileSystem) ReadLines(path string) ([]string, bool, error) {
	f, ok := m.files[path]
	if !ok {
		return nil, false, m.notExist("open", path)
	}
	lines := make([]string, len(f.lines))
	copy(lines, f.lines)
	return lines, f.finalNewline, nil
}

func (m *MemoryFileSystem) WriteLines(path string, lines []string, finalNewline bool, mode fs.FileMode) error {
	stored := make([]string, len(lines))
	copy(stored, lines)
	if existing, ok := m.files[path]; ok && mode == 0 {
		mode = existing.mode
	}
	if mode == 0 {
		mode = 0o644
	}
	m.files[path] = &memoryFile{lines: stored, finalNewline: finalNewline, mode: mode}
	return nil
}

func (m *MemoryFileSystem) Remove(path string) error {
	if _, ok := m.files[path]; !ok {
		return m.notExist("remove", path)
	}
	delete(m.files, path)
	return nil
}

func (m *MemoryFileSystem) Rename(oldPath, newPath string) error {
	f, ok := m.files[oldPath]
	if !ok {
		return m.notExist("rename", oldPath)
	}
	delete(m.files, oldPath)
	m.files[newPath] = f
	return nil
}

func (m *MemoryFileSystem) Stat(path string) (fs.FileMode, error) {
	f, ok := m.files[path]
	if !ok {
		return 0, m.notExist("stat", path)
	}
	return f.mode, nil
}

func (m *MemoryFileSystem) Chmod(path string, mode fs.FileMode) error {
	f, ok := m.files[path]
	if !ok {
		return m.notExist("chmod", path)
	}
	f.mode = mode.Perm()
	return nil
}

// SetFile stores raw content, splitting it the same way files are read.
func (m *MemoryFileSystem) SetFile(path, content string) {
	lines, finalNewline := splitLines([]byte(content))
	m.files[path] = &memoryFile{lines: lines, finalNewline: finalNewline, mode: 0o644}
}

// FileContent joins a stored file back into raw content.
func (m *MemoryFileSystem) FileContent(path string) (string, bool) {
	f, ok := m.files[path]
	if !ok {
		return "", false
	}
	return string(joinLines(f.lines, f.finalNewline)), true
}

// Exists reports whether a file is present.
func (m *MemoryFileSystem) Exists(path string) bool {
	_, ok := m.files[path]
	return ok
}
