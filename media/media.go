// Package media prepares avatar images and stores them on Cloudinary.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/disintegration/imaging"
)

const (
	AvatarSize   = 128
	avatarFolder = "blog/avatars"
)

// ResizeAvatar decodes an uploaded image and returns it cropped to a
// 128x128 PNG.
func ResizeAvatar(r io.Reader) (*bytes.Buffer, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode avatar: %w", err)
	}
	thumb := imaging.Fill(img, AvatarSize, AvatarSize, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode avatar: %w", err)
	}
	return &buf, nil
}

// Asset is an uploaded image. PublicID is what Destroy needs later.
type Asset struct {
	URL      string
	PublicID string
}

type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinary(url string) (*Cloudinary, error) {
	if url == "" {
		return nil, errors.New("CLOUDINARY_URL is empty")
	}
	cld, err := cloudinary.NewFromURL(url)
	if err != nil {
		return nil, err
	}
	return &Cloudinary{cld: cld, folder: avatarFolder}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, r io.Reader) (Asset, error) {
	res, err := c.cld.Upload.Upload(ctx, r, uploader.UploadParams{Folder: c.folder})
	if err != nil {
		return Asset{}, err
	}
	if res.Error.Message != "" {
		return Asset{}, errors.New(res.Error.Message)
	}
	return Asset{URL: res.SecureURL, PublicID: res.PublicID}, nil
}

// Destroy removes an asset. An asset that is already gone counts as removed.
func (c *Cloudinary) Destroy(ctx context.Context, publicID string) error {
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return err
	}
	switch res.Result {
	case "ok", "not found":
		return nil
	}
	if res.Error.Message != "" {
		return fmt.Errorf("destroy %s: %s", publicID, res.Error.Message)
	}
	return fmt.Errorf("destroy %s: %s", publicID, res.Result)
}
