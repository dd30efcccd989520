package io

import (
	"errors"
	"io/fs"
	"path"
)

// LoadImage reads a raw program image from a file system.
// The image must fit in capacity bytes; a capacity of zero is unlimited.
func LoadImage(filesys fs.FS, name string, capacity int) (data []byte, err error) {
	data, err = fs.ReadFile(filesys, name)
	if err != nil {
		return
	}

	if capacity > 0 && len(data) > capacity {
		err = ErrImageSize{Size: len(data), Capacity: capacity}
		data = nil
		return
	}

	return
}

// SaveImage writes a raw memory image, with no header or metadata, to
// name in the file system. Missing parent directories are created.
func SaveImage(filesys CreateFS, name string, data []byte) (err error) {
	dir, file := path.Split(name)
	if len(dir) != 0 {
		dir = path.Clean(dir)
		filesys, err = subdir(filesys, dir)
		if err != nil {
			return
		}
	}

	out, err := filesys.Create(file)
	if err != nil {
		return
	}

	_, err = out.Write(data)
	if err != nil {
		out.Close()
		return
	}

	err = out.Close()

	return
}

// subdir returns the sub file system for dir, creating it as needed.
func subdir(filesys CreateFS, dir string) (sub CreateFS, err error) {
	sub, err = filesys.Sub(dir)
	if err == nil || !errors.Is(err, fs.ErrNotExist) {
		return
	}

	parent, base := path.Split(dir)
	if len(parent) != 0 {
		filesys, err = subdir(filesys, path.Clean(parent))
		if err != nil {
			return
		}
	}

	err = filesys.Mkdir(base, 0755)
	if err != nil {
		return
	}

	return filesys.Sub(base)
}
