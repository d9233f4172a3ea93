package media

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"
)

func encoded(t *testing.T, w, h int, enc func(*bytes.Buffer, image.Image) error) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 255, A: 255})
	}
	var buf bytes.Buffer
	if err := enc(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return &buf
}

func TestResizeAvatar(t *testing.T) {
	tests := []struct {
		name string
		in   *bytes.Buffer
	}{
		{"wide png", encoded(t, 400, 200, func(b *bytes.Buffer, i image.Image) error { return png.Encode(b, i) })},
		{"small jpeg", encoded(t, 40, 60, func(b *bytes.Buffer, i image.Image) error { return jpeg.Encode(b, i, nil) })},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ResizeAvatar(tt.in)
			if err != nil {
				t.Fatalf("ResizeAvatar: %v", err)
			}
			img, format, err := image.Decode(out)
			if err != nil {
				t.Fatalf("decode result: %v", err)
			}
			if format != "png" {
				t.Errorf("format = %s, want png", format)
			}
			if b := img.Bounds(); b.Dx() != AvatarSize || b.Dy() != AvatarSize {
				t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), AvatarSize, AvatarSize)
			}
		})
	}
}

func TestResizeAvatarRejectsNonImages(t *testing.T) {
	if _, err := ResizeAvatar(strings.NewReader("definitely not an image")); err == nil {
		t.Error("ResizeAvatar succeeded on text input")
	}
}

func TestNewCloudinaryRequiresURL(t *testing.T) {
	if _, err := NewCloudinary(""); err == nil {
		t.Error("NewCloudinary accepted an empty URL")
	}
}
