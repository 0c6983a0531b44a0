package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"wayfare/api/internal/apperr"
	"wayfare/api/internal/ids"
	"wayfare/api/internal/models"
)

// MediaUploader is the object-storage surface the media component needs.
type MediaUploader interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
}

const maxMediaBytes = 10 << 20

var mediaExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// MediaService stores uploaded imagery for partners; experiences reference
// the returned URLs.
type MediaService struct {
	store MediaUploader
	log   zerolog.Logger
}

func NewMediaService(store MediaUploader, log zerolog.Logger) *MediaService {
	return &MediaService{store: store, log: log}
}

type UploadInput struct {
	Body        io.Reader
	Size        int64
	ContentType string
}

func (s *MediaService) Upload(ctx context.Context, actor AuthContext, input UploadInput) (string, error) {
	if !RequireRole(actor, models.RolePartner, models.RolePartnerManager, models.RolePlatformAdmin, models.RoleSuperAdmin) {
		return "", apperr.Forbidden("insufficient role")
	}
	if input.Size <= 0 {
		return "", apperr.BadRequest("empty upload")
	}
	if input.Size > maxMediaBytes {
		return "", apperr.BadRequest("file exceeds 10 MiB limit")
	}

	contentType := strings.ToLower(strings.TrimSpace(input.ContentType))
	ext, ok := mediaExtensions[contentType]
	if !ok {
		return "", apperr.BadRequest("unsupported media type")
	}

	key := fmt.Sprintf("media/%s.%s", ids.New(), ext)
	url, err := s.store.Put(ctx, key, input.Body, input.Size, contentType)
	if err != nil {
		return "", apperr.Wrap(apperr.KindInternal, "store media", err)
	}

	s.log.Info().
		Str("account_id", actor.AccountID).
		Str("key", key).
		Int64("size", input.Size).
		Msg("media uploaded")
	return url, nil
}
