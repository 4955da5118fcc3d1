package extract

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"strings"
	"testing"

	"golang.org/x/image/bmp"
)

func testImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 5), G: uint8(y * 5), B: 200, A: 255})
		}
	}
	return img
}

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage(w, h)); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func TestPrepareImage(t *testing.T) {
	var bmpBuf bytes.Buffer
	if err := bmp.Encode(&bmpBuf, testImage(30, 10)); err != nil {
		t.Fatalf("bmp.Encode() error = %v", err)
	}
	var jpegBuf bytes.Buffer
	if err := jpeg.Encode(&jpegBuf, testImage(30, 10), nil); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}

	tests := []struct {
		name       string
		data       []byte
		maxDim     int
		wantMime   string
		wantWidth  int
		wantHeight int
		wantSame   bool
	}{
		{"small png passes through", testPNG(t, 40, 20), 100, "image/png", 40, 20, true},
		{"small jpeg passes through", jpegBuf.Bytes(), 100, "image/jpeg", 30, 10, true},
		{"large png is downscaled", testPNG(t, 40, 20), 10, "image/jpeg", 10, 5, false},
		{"portrait keeps its ratio", testPNG(t, 20, 40), 20, "image/jpeg", 10, 20, false},
		{"bmp is re-encoded", bmpBuf.Bytes(), 100, "image/jpeg", 30, 10, false},
		{"no limit", testPNG(t, 40, 20), 0, "image/png", 40, 20, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PrepareImage(Image{Data: tt.data, Name: "receipt"}, tt.maxDim)
			if err != nil {
				t.Fatalf("PrepareImage() error = %v", err)
			}
			if got.MimeType != tt.wantMime {
				t.Errorf("MimeType = %q, want %q", got.MimeType, tt.wantMime)
			}
			if same := bytes.Equal(got.Data, tt.data); same != tt.wantSame {
				t.Errorf("data unchanged = %v, want %v", same, tt.wantSame)
			}

			cfg, _, err := image.DecodeConfig(bytes.NewReader(got.Data))
			if err != nil {
				t.Fatalf("DecodeConfig() error = %v", err)
			}
			if cfg.Width != tt.wantWidth || cfg.Height != tt.wantHeight {
				t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantWidth, tt.wantHeight)
			}
		})
	}
}

func TestPrepareImageRejectsGarbage(t *testing.T) {
	for _, data := range [][]byte{nil, []byte("hello"), []byte("%PDF-1.7")} {
		if _, err := PrepareImage(Image{Data: data}, 100); !errors.Is(err, ErrUnsupportedImage) {
			t.Errorf("PrepareImage(%q) error = %v, want ErrUnsupportedImage", data, err)
		}
	}
}

func TestDataURL(t *testing.T) {
	img := Image{Data: []byte("abc"), MimeType: "image/jpeg"}
	if got, want := img.DataURL(), "data:image/jpeg;base64,YWJj"; got != want {
		t.Errorf("DataURL() = %q, want %q", got, want)
	}

	detected := Image{Data: testPNG(t, 2, 2)}
	if got := detected.DataURL(); !strings.HasPrefix(got, "data:image/png;base64,") {
		t.Errorf("DataURL() = %.30q, want a PNG data URL", got)
	}
}
