package io

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// CreateFS defines a file system interface that supports creating files and directories.
// It extends basic file system operations with write capabilities for saving
// memory images.
type CreateFS interface {
	// Sub returns a filesystem for a subdirectory.
	Sub(name string) (sub CreateFS, err error)
	// Create creates a new file for writing.
	Create(name string) (file io.WriteCloser, err error)
	// Mkdir creates a new directory with the specified permissions.
	Mkdir(name string, filemode fs.FileMode) (err error)
}

// DirFS is a CreateFS (and fs.FS) rooted at a host directory.
type DirFS string

var _ CreateFS = DirFS("")
var _ fs.FS = DirFS("")

// Open opens a file for reading.
func (dir DirFS) Open(name string) (fs.File, error) {
	return os.DirFS(string(dir)).Open(name)
}

// Sub returns the filesystem rooted at the subdirectory name.
func (dir DirFS) Sub(name string) (sub CreateFS, err error) {
	path := filepath.Join(string(dir), filepath.FromSlash(name))
	st, err := os.Stat(path)
	if err != nil {
		return
	}
	if !st.IsDir() {
		err = &fs.PathError{Op: "sub", Path: name, Err: fs.ErrInvalid}
		return
	}

	sub = DirFS(path)
	return
}

// Create creates or truncates the file name.
func (dir DirFS) Create(name string) (file io.WriteCloser, err error) {
	return os.Create(filepath.Join(string(dir), filepath.FromSlash(name)))
}

// Mkdir creates the directory name.
func (dir DirFS) Mkdir(name string, filemode fs.FileMode) (err error) {
	return os.Mkdir(filepath.Join(string(dir), filepath.FromSlash(name)), filemode)
}
