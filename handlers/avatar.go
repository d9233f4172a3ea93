package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackwatters45/blog-api/logger"
	"github.com/jackwatters45/blog-api/media"
)

var (
	errMediaUnavailable = errors.New("avatar uploads are not configured")
	errInvalidImage     = errors.New("avatar must be an image")
)

// uploadAvatar stores the optional "avatar" form file. It returns nil when
// the request carries no file.
func (h *Handler) uploadAvatar(ctx context.Context, c *gin.Context) (*media.Asset, error) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		return nil, nil
	}
	if h.media == nil {
		return nil, errMediaUnavailable
	}

	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	resized, err := media.ResizeAvatar(f)
	if err != nil {
		return nil, errInvalidImage
	}
	asset, err := h.media.Upload(ctx, resized)
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// discardAvatar removes an uploaded asset that will not be used after all.
func (h *Handler) discardAvatar(ctx context.Context, asset *media.Asset) {
	if asset == nil || h.media == nil {
		return
	}
	if err := h.media.Destroy(ctx, asset.PublicID); err != nil {
		logger.Warn.Printf("[Avatar] could not remove unused asset %s: %v", asset.PublicID, err)
	}
}

func respondAvatarError(c *gin.Context, op string, err error) {
	switch {
	case errors.Is(err, errMediaUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"message": "Avatar uploads are currently unavailable"})
	case errors.Is(err, errInvalidImage):
		validationFailed(c, fieldError{Field: "avatar", Message: err.Error()})
	default:
		logger.Error.Printf("[%s] avatar upload: %v", op, err)
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Could not upload avatar"})
	}
}
