package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

type ImageRepository interface {
	SaveImage(ctx context.Context, name string, data []byte) error
	Dir() string
}

type imageRepository struct {
	fs  afero.Fs
	dir string
}

// NewImageRepository stores images flat in dir, creating the directory if needed.
func NewImageRepository(fs afero.Fs, dir string) (ImageRepository, error) {
	if err := fs.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	return &imageRepository{
		fs:  fs,
		dir: dir,
	}, nil
}

func (r *imageRepository) Dir() string {
	return r.dir
}

// SaveImage writes data verbatim to dir/name, replacing any existing file.
func (r *imageRepository) SaveImage(ctx context.Context, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if name == "" || filepath.Base(name) != name {
		return fmt.Errorf("invalid image file name %q", name)
	}

	path := filepath.Join(r.dir, name)
	if err := afero.WriteFile(r.fs, path, data, os.FileMode(0644)); err != nil {
		return fmt.Errorf("failed to save image %s: %w", path, err)
	}

	return nil
}
