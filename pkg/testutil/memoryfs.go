package testutil

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"
)

const maxLinkDepth = 40

// MemoryFS implements types.FS with in-memory storage. Paths are absolute
// and symlinks resolve the way they do on a POSIX filesystem.
type MemoryFS struct {
	mu    sync.RWMutex
	nodes map[string]*memNode

	// Error injection
	errorPaths map[string]error

	// Statistics
	writeCount int
}

type memNode struct {
	mode    fs.FileMode
	content []byte
	link    string
	modTime time.Time
}

// NewMemoryFS creates an empty filesystem holding only "/"
func NewMemoryFS() *MemoryFS {
	return &MemoryFS{
		nodes: map[string]*memNode{
			"/": {mode: fs.ModeDir | 0755, modTime: time.Now()},
		},
		errorPaths: make(map[string]error),
	}
}

// resolve maps name to the key of the node it designates. Symlinks in
// parent components are always followed; the last component only when
// follow is set.
func (m *MemoryFS) resolve(name string, follow bool) (string, error) {
	return m.resolveDepth(filepath.Clean(name), follow, 0)
}

func (m *MemoryFS) resolveDepth(p string, follow bool, depth int) (string, error) {
	if depth > maxLinkDepth {
		return "", syscall.ELOOP
	}
	if p == "/" {
		return p, nil
	}

	parent, err := m.resolveDepth(filepath.Dir(p), true, depth)
	if err != nil {
		return "", err
	}
	if pn, ok := m.nodes[parent]; ok && !pn.mode.IsDir() {
		return "", syscall.ENOTDIR
	}

	real := filepath.Join(parent, filepath.Base(p))
	n, ok := m.nodes[real]
	if !ok || !follow || n.link == "" {
		return real, nil
	}

	dest := n.link
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(parent, dest)
	}
	return m.resolveDepth(filepath.Clean(dest), true, depth+1)
}

func (m *MemoryFS) injected(name string) error {
	return m.errorPaths[filepath.Clean(name)]
}

func (m *MemoryFS) lookup(op, name string, follow bool) (string, *memNode, error) {
	if err := m.injected(name); err != nil {
		return "", nil, &fs.PathError{Op: op, Path: name, Err: err}
	}
	real, err := m.resolve(name, follow)
	if err != nil {
		return "", nil, &fs.PathError{Op: op, Path: name, Err: err}
	}
	n, ok := m.nodes[real]
	if !ok {
		return real, nil, &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
	}
	return real, n, nil
}

// Stat returns file info, following symlinks
func (m *MemoryFS) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, n, err := m.lookup("stat", name, true)
	if err != nil {
		return nil, err
	}
	return &fileInfo{name: filepath.Base(name), node: n}, nil
}

// Lstat returns file info without following a final symlink
func (m *MemoryFS) Lstat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, n, err := m.lookup("lstat", name, false)
	if err != nil {
		return nil, err
	}
	return &fileInfo{name: filepath.Base(name), node: n}, nil
}

// ReadDir lists a directory sorted by name
func (m *MemoryFS) ReadDir(name string) ([]fs.DirEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	real, n, err := m.lookup("readdir", name, true)
	if err != nil {
		return nil, err
	}
	if !n.mode.IsDir() {
		return nil, &fs.PathError{Op: "readdir", Path: name, Err: syscall.ENOTDIR}
	}

	var entries []fs.DirEntry
	for p, child := range m.nodes {
		if p != "/" && filepath.Dir(p) == real {
			entries = append(entries, fs.FileInfoToDirEntry(&fileInfo{name: filepath.Base(p), node: child}))
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	return entries, nil
}

// MkdirAll creates a directory and all missing parents
func (m *MemoryFS) MkdirAll(path string, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mkdirAll(path, perm)
}

func (m *MemoryFS) mkdirAll(path string, perm fs.FileMode) error {
	if err := m.injected(path); err != nil {
		return &fs.PathError{Op: "mkdir", Path: path, Err: err}
	}

	path = filepath.Clean(path)
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	current := "/"
	for _, part := range parts {
		if part == "" {
			continue
		}
		current = filepath.Join(current, part)
		real, err := m.resolve(current, true)
		if err != nil {
			return &fs.PathError{Op: "mkdir", Path: current, Err: err}
		}
		n, ok := m.nodes[real]
		if !ok {
			m.nodes[real] = &memNode{mode: fs.ModeDir | perm, modTime: time.Now()}
			m.writeCount++
			continue
		}
		if !n.mode.IsDir() {
			return &fs.PathError{Op: "mkdir", Path: current, Err: syscall.ENOTDIR}
		}
	}
	return nil
}

// Symlink creates newname pointing at oldname
func (m *MemoryFS) Symlink(oldname, newname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	real, n, err := m.lookup("symlink", newname, false)
	if n != nil {
		return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: fs.ErrExist}
	}
	if !isNotExist(err) {
		return err
	}
	if err := m.requireDir(filepath.Dir(real)); err != nil {
		return &os.LinkError{Op: "symlink", Old: oldname, New: newname, Err: err}
	}

	m.nodes[real] = &memNode{mode: fs.ModeSymlink | 0777, link: oldname, modTime: time.Now()}
	m.writeCount++
	return nil
}

// Readlink returns the destination of a symbolic link
func (m *MemoryFS) Readlink(name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, n, err := m.lookup("readlink", name, false)
	if err != nil {
		return "", err
	}
	if n.link == "" {
		return "", &fs.PathError{Op: "readlink", Path: name, Err: syscall.EINVAL}
	}
	return n.link, nil
}

// Rename moves oldpath, and everything below it, to newpath. An existing
// non-directory at newpath is replaced.
func (m *MemoryFS) Rename(oldpath, newpath string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	from, n, err := m.lookup("rename", oldpath, false)
	if err != nil {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: unwrapPathErr(err)}
	}
	to, existing, err := m.lookup("rename", newpath, false)
	if err != nil && !isNotExist(err) {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: unwrapPathErr(err)}
	}
	if err := m.requireDir(filepath.Dir(to)); err != nil {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: err}
	}
	if existing != nil && existing.mode.IsDir() {
		if !n.mode.IsDir() {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EISDIR}
		}
		if m.hasChildren(to) {
			return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.ENOTEMPTY}
		}
	}
	if from == to {
		return nil
	}

	moved := make(map[string]*memNode)
	for p, child := range m.nodes {
		if p == from || strings.HasPrefix(p, from+"/") {
			moved[to+strings.TrimPrefix(p, from)] = child
			delete(m.nodes, p)
		}
	}
	for p, child := range moved {
		m.nodes[p] = child
	}
	m.writeCount++
	return nil
}

// Remove removes a file, link or empty directory
func (m *MemoryFS) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	real, n, err := m.lookup("remove", name, false)
	if err != nil {
		return err
	}
	if n.mode.IsDir() && m.hasChildren(real) {
		return &fs.PathError{Op: "remove", Path: name, Err: syscall.ENOTEMPTY}
	}
	delete(m.nodes, real)
	m.writeCount++
	return nil
}

// WriteFile creates or truncates a regular file, creating parents as needed
func (m *MemoryFS) WriteFile(name string, data []byte, perm fs.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.mkdirAll(filepath.Dir(name), 0755); err != nil {
		return err
	}
	real, n, err := m.lookup("open", name, true)
	if err != nil && !isNotExist(err) {
		return err
	}
	if n != nil && n.mode.IsDir() {
		return &fs.PathError{Op: "open", Path: name, Err: syscall.EISDIR}
	}

	content := make([]byte, len(data))
	copy(content, data)
	m.nodes[real] = &memNode{mode: perm, content: content, modTime: time.Now()}
	m.writeCount++
	return nil
}

// ReadFile returns the content of a regular file, following symlinks
func (m *MemoryFS) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, n, err := m.lookup("open", name, true)
	if err != nil {
		return nil, err
	}
	if n.mode.IsDir() {
		return nil, &fs.PathError{Op: "read", Path: name, Err: syscall.EISDIR}
	}
	return append([]byte(nil), n.content...), nil
}

// WithError makes every operation on path fail with err
func (m *MemoryFS) WithError(path string, err error) *MemoryFS {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.errorPaths[filepath.Clean(path)] = err
	return m
}

// Writes returns the number of mutating operations performed so far
func (m *MemoryFS) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writeCount
}

func (m *MemoryFS) requireDir(real string) error {
	n, ok := m.nodes[real]
	if !ok {
		return fs.ErrNotExist
	}
	if !n.mode.IsDir() {
		return syscall.ENOTDIR
	}
	return nil
}

func (m *MemoryFS) hasChildren(real string) bool {
	for p := range m.nodes {
		if p != real && filepath.Dir(p) == real {
			return true
		}
	}
	return false
}

func isNotExist(err error) bool {
	return err != nil && os.IsNotExist(err)
}

func unwrapPathErr(err error) error {
	if pe, ok := err.(*fs.PathError); ok {
		return pe.Err
	}
	return err
}

// fileInfo implements fs.FileInfo
type fileInfo struct {
	name string
	node *memNode
}

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return int64(len(fi.node.content)) }
func (fi *fileInfo) Mode() fs.FileMode  { return fi.node.mode }
func (fi *fileInfo) ModTime() time.Time { return fi.node.modTime }
func (fi *fileInfo) IsDir() bool        { return fi.node.mode.IsDir() }
func (fi *fileInfo) Sys() interface{}   { return nil }
