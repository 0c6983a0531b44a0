package service

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wayfare/api/internal/apperr"
)

type memMediaStore struct {
	keys []string
}

func (m *memMediaStore) Put(_ context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	m.keys = append(m.keys, key)
	return "https://cdn.example.com/" + key, nil
}

func TestUploadMedia(t *testing.T) {
	store := &memMediaStore{}
	svc := NewMediaService(store, zerolog.Nop())

	url, err := svc.Upload(context.Background(), partnerActor, UploadInput{
		Body:        strings.NewReader("fake jpeg bytes"),
		Size:        15,
		ContentType: "image/jpeg",
	})
	require.NoError(t, err)
	assert.Contains(t, url, "https://cdn.example.com/media/")
	require.Len(t, store.keys, 1)
	assert.True(t, strings.HasSuffix(store.keys[0], ".jpg"))
}

func TestUploadMediaGuards(t *testing.T) {
	svc := NewMediaService(&memMediaStore{}, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.Upload(ctx, touristActor, UploadInput{Size: 10, ContentType: "image/png"})
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	_, err = svc.Upload(ctx, partnerActor, UploadInput{Size: 0, ContentType: "image/png"})
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))

	_, err = svc.Upload(ctx, partnerActor, UploadInput{Size: 11 << 20, ContentType: "image/png"})
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))

	_, err = svc.Upload(ctx, partnerActor, UploadInput{Size: 10, ContentType: "application/pdf"})
	assert.True(t, apperr.IsKind(err, apperr.KindBadRequest))
}
