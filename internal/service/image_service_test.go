package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"deskhub/internal/database"
	"deskhub/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	host := createTestUser(t, env.db, "host@example.com")
	office := createTestOffice(t, env.db, host.ID)

	image, err := env.images.UploadImage(ctx, host.ID, office.ID, "front.jpg", 9, strings.NewReader("jpeg data"))
	require.NoError(t, err)
	assert.NotZero(t, image.ID)
	assert.True(t, strings.HasSuffix(image.Path, ".jpg"))

	r, err := env.files.Open(image.Path)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "jpeg data", string(data))

	stored, err := env.db.ListOfficeImages(ctx, office.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestUploadImageRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	host := createTestUser(t, env.db, "host@example.com")
	stranger := createTestUser(t, env.db, "stranger@example.com")
	office := createTestOffice(t, env.db, host.ID)

	t.Run("too large", func(t *testing.T) {
		_, err := env.images.UploadImage(ctx, host.ID, office.ID, "big.jpg", models.MaxImageBytes+1, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrImageTooLarge)
	})

	t.Run("not the owner", func(t *testing.T) {
		_, err := env.images.UploadImage(ctx, stranger.ID, office.ID, "sneaky.jpg", 1, strings.NewReader("x"))
		assert.ErrorIs(t, err, ErrOfficeNotOwned)
	})

	t.Run("missing office", func(t *testing.T) {
		_, err := env.images.UploadImage(ctx, host.ID, 9999, "lost.jpg", 1, strings.NewReader("x"))
		assert.ErrorIs(t, err, database.ErrOfficeNotFound)
	})
}

func TestOpenImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	host := createTestUser(t, env.db, "host@example.com")
	office := createTestOffice(t, env.db, host.ID)
	other := createTestOffice(t, env.db, host.ID)

	uploaded, err := env.images.UploadImage(ctx, host.ID, office.ID, "front.jpg", 9, strings.NewReader("jpeg data"))
	require.NoError(t, err)

	image, r, err := env.images.OpenImage(ctx, office.ID, uploaded.ID)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, uploaded.Path, image.Path)
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "jpeg data", string(data))

	t.Run("wrong office", func(t *testing.T) {
		_, _, err := env.images.OpenImage(ctx, other.ID, uploaded.ID)
		assert.ErrorIs(t, err, ErrImageNotAttached)
	})

	t.Run("missing image", func(t *testing.T) {
		_, _, err := env.images.OpenImage(ctx, office.ID, 9999)
		assert.ErrorIs(t, err, database.ErrImageNotFound)
	})
}

func TestDeleteImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	host := createTestUser(t, env.db, "host@example.com")
	office := createTestOffice(t, env.db, host.ID)
	other := createTestOffice(t, env.db, host.ID)

	image, err := env.images.UploadImage(ctx, host.ID, office.ID, "a.jpg", 1, strings.NewReader("x"))
	require.NoError(t, err)

	t.Run("wrong office", func(t *testing.T) {
		err := env.images.DeleteImage(ctx, host.ID, other.ID, image.ID)
		assert.ErrorIs(t, err, ErrImageNotAttached)
	})

	t.Run("featured image is protected", func(t *testing.T) {
		_, err := env.offices.UpdateOffice(ctx, host.ID, office.ID, OfficeUpdate{FeaturedImageID: &image.ID})
		require.NoError(t, err)

		err = env.images.DeleteImage(ctx, host.ID, office.ID, image.ID)
		assert.ErrorIs(t, err, database.ErrFeaturedImage)
	})

	t.Run("delete removes row and file", func(t *testing.T) {
		var none int64
		_, err := env.offices.UpdateOffice(ctx, host.ID, office.ID, OfficeUpdate{FeaturedImageID: &none})
		require.NoError(t, err)

		require.NoError(t, env.images.DeleteImage(ctx, host.ID, office.ID, image.ID))

		_, err = env.db.GetImage(ctx, image.ID)
		assert.ErrorIs(t, err, database.ErrImageNotFound)

		_, err = env.files.Open(image.Path)
		assert.Error(t, err)
	})
}
