package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage keeps uploads on disk, served by the HTTP server under /uploads.
type LocalStorage struct {
	uploadDir string
	baseURL   string
}

func NewLocalStorage(uploadDir, baseURL string) *LocalStorage {
	return &LocalStorage{uploadDir: uploadDir, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (ls *LocalStorage) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return filepath.Join(ls.uploadDir, clean), nil
}

func (ls *LocalStorage) Upload(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) (Object, error) {
	dst, err := ls.path(key)
	if err != nil {
		return Object{}, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return Object{}, fmt.Errorf("failed to create upload directory: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return Object{}, fmt.Errorf("failed to create destination file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, body)
	if err != nil {
		return Object{}, fmt.Errorf("failed to save file: %w", err)
	}
	return Object{Key: key, Size: n, URL: ls.URL(key)}, nil
}

func (ls *LocalStorage) List(ctx context.Context, prefix string) ([]Object, error) {
	root := ls.uploadDir
	if prefix != "" {
		p, err := ls.path(prefix)
		if err != nil {
			return nil, err
		}
		root = p
	}

	var objects []Object
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return fs.SkipDir
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(ls.uploadDir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		objects = append(objects, Object{Key: key, Size: info.Size(), LastModified: info.ModTime(), URL: ls.URL(key)})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	return objects, nil
}

func (ls *LocalStorage) Delete(ctx context.Context, key string) error {
	p, err := ls.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

func (ls *LocalStorage) URL(key string) string {
	return joinURL(ls.baseURL+"/uploads", key)
}
