package repository

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageRepository_SaveImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo, err := NewImageRepository(fs, "images")
	require.NoError(t, err)
	assert.Equal(t, "images", repo.Dir())

	require.NoError(t, repo.SaveImage(context.Background(), "42.jpg", []byte("first")))

	data, err := afero.ReadFile(fs, "images/42.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), data)

	require.NoError(t, repo.SaveImage(context.Background(), "42.jpg", []byte("second")))

	data, err = afero.ReadFile(fs, "images/42.jpg")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), data, "existing file must be overwritten")
}

func TestImageRepository_RejectsNestedNames(t *testing.T) {
	repo, err := NewImageRepository(afero.NewMemMapFs(), ".")
	require.NoError(t, err)

	for _, name := range []string{"", "../42.jpg", "sub/42.jpg"} {
		assert.Error(t, repo.SaveImage(context.Background(), name, []byte("x")), name)
	}
}

func TestImageRepository_CancelledContext(t *testing.T) {
	fs := afero.NewMemMapFs()
	repo, err := NewImageRepository(fs, ".")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, repo.SaveImage(ctx, "1.jpg", []byte("x")), context.Canceled)

	exists, err := afero.Exists(fs, "1.jpg")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestNewImageRepository_ReadOnlyFs(t *testing.T) {
	_, err := NewImageRepository(afero.NewReadOnlyFs(afero.NewMemMapFs()), "images")
	assert.Error(t, err)
}
