// Package storage keeps uploaded product images on a filesystem.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

const DefaultMaxImageBytes = 2 << 20 // 2 MB

var (
	ErrImageTooLarge = errors.New("image exceeds the size limit")
	ErrNotAnImage    = errors.New("file is not an image")
)

type ImageStore struct {
	fs       afero.Fs
	dir      string
	maxBytes int64
}

func NewImageStore(fs afero.Fs, dir string, maxBytes int64) *ImageStore {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &ImageStore{fs: fs, dir: dir, maxBytes: maxBytes}
}

// Dir is the directory served under /storage/products
func (s *ImageStore) Dir() string { return s.dir }

// Save sniffs the content type from the bytes themselves and writes the file
// under a random name. It returns the stored name.
func (s *ImageStore) Save(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return "", ErrImageTooLarge
	}

	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return "", ErrNotAnImage
	}

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}
	name := uuid.NewString() + mtype.Extension()
	if err := afero.WriteReader(s.fs, path.Join(s.dir, name), bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	return name, nil
}

// Delete removes a stored image. A missing file is not an error.
func (s *ImageStore) Delete(name string) error {
	if name == "" {
		return nil
	}
	err := s.fs.Remove(path.Join(s.dir, path.Base(name)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *ImageStore) Exists(name string) bool {
	ok, err := afero.Exists(s.fs, path.Join(s.dir, path.Base(name)))
	return err == nil && ok
}
