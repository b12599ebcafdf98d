package assist

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func encodePNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestResizeImage_ShrinksLargeImage(t *testing.T) {
	data := encodePNG(t, 800, 600)

	out, err := ResizeImage(data, 512)
	if err != nil {
		t.Fatalf("ResizeImage() error = %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if got := img.Bounds().Dx(); got != 512 {
		t.Errorf("width = %d, want 512", got)
	}
	if got := img.Bounds().Dy(); got != 384 {
		t.Errorf("height = %d, want 384", got)
	}
}

func TestResizeImage_PortraitBoundsHeight(t *testing.T) {
	data := encodePNG(t, 300, 900)

	out, err := ResizeImage(data, 512)
	if err != nil {
		t.Fatalf("ResizeImage() error = %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if got := img.Bounds().Dy(); got != 512 {
		t.Errorf("height = %d, want 512", got)
	}
	if got := img.Bounds().Dx(); got != 170 {
		t.Errorf("width = %d, want 170", got)
	}
}

func TestResizeImage_SmallImageReencodedOnly(t *testing.T) {
	data := encodePNG(t, 100, 80)

	out, err := ResizeImage(data, 512)
	if err != nil {
		t.Fatalf("ResizeImage() error = %v", err)
	}

	img, err := jpeg.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("output is not a JPEG: %v", err)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 80 {
		t.Errorf("bounds = %dx%d, want 100x80 unchanged", img.Bounds().Dx(), img.Bounds().Dy())
	}
}

func TestResizeImage_RejectsGarbage(t *testing.T) {
	if _, err := ResizeImage([]byte("not an image"), 512); err == nil {
		t.Error("expected error for undecodable input")
	}
}
