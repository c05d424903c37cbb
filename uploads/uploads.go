// Package uploads stores user-submitted images on local disk
package uploads

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const (
	DirUsers       = "users"
	DirRestaurants = "restaurants"
	DirMenu        = "menu"

	MaxImageSize = 5 << 20
)

var (
	ErrUnsupportedType = errors.New("only JPEG, PNG and GIF images are accepted")
	ErrTooLarge        = errors.New("image is larger than 5 MB")
	ErrBadPath         = errors.New("path escapes upload directory")
)

var allowed = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
}

type Store struct {
	Root string
}

func NewStore(root string) *Store {
	return &Store{Root: root}
}

// Save writes the uploaded image under dir with a random name and returns
// the path relative to Root, using forward slashes.
func (s *Store) Save(fh *multipart.FileHeader, dir string) (string, error) {
	if fh.Size > MaxImageSize {
		return "", ErrTooLarge
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()
	return s.SaveReader(src, dir)
}

// SaveReader is Save for an already opened file
func (s *Store) SaveReader(r io.Reader, dir string) (string, error) {
	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	head = head[:n]

	ext, ok := allowed[mimetype.Detect(head).String()]
	if !ok {
		return "", ErrUnsupportedType
	}

	if err := os.MkdirAll(filepath.Join(s.Root, dir), 0o755); err != nil {
		return "", err
	}
	rel := path.Join(dir, uuid.NewString()+ext)
	dst, err := os.Create(filepath.Join(s.Root, filepath.FromSlash(rel)))
	if err != nil {
		return "", err
	}

	written, err := io.Copy(dst, io.LimitReader(io.MultiReader(bytes.NewReader(head), r), MaxImageSize+1))
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err == nil && written > MaxImageSize {
		err = ErrTooLarge
	}
	if err != nil {
		os.Remove(filepath.Join(s.Root, filepath.FromSlash(rel)))
		return "", err
	}
	return rel, nil
}

// Remove deletes a stored file. A missing file is not an error.
func (s *Store) Remove(rel string) error {
	if rel == "" {
		return nil
	}
	full, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", rel, err)
	}
	return nil
}

func (s *Store) resolve(rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if clean == "/" || clean != "/"+strings.TrimPrefix(rel, "/") {
		return "", ErrBadPath
	}
	return filepath.Join(s.Root, filepath.FromSlash(clean[1:])), nil
}
