package extract

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoding
	"image/jpeg"
	_ "image/png" // register PNG decoding
	"net/http"

	_ "golang.org/x/image/bmp" // register BMP decoding
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoding
)

// jpegQuality is used when a receipt has to be re-encoded.
const jpegQuality = 85

// formats the vision models accept as-is
var passthroughTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

// PrepareImage detects the image type and downsizes images whose longest side
// exceeds maxDimension, re-encoding them as JPEG. Formats the models cannot
// read (BMP) are re-encoded even when small enough.
func PrepareImage(img Image, maxDimension int) (Image, error) {
	const op = "PrepareImage"

	mimeType := http.DetectContentType(img.Data)
	cfg, _, err := image.DecodeConfig(bytes.NewReader(img.Data))
	if err != nil {
		return Image{}, WrapExtractionError(op, ErrUnsupportedImage, fmt.Sprintf("%s (%s): %v", img.Name, mimeType, err))
	}

	longest := max(cfg.Width, cfg.Height)
	if passthroughTypes[mimeType] && (maxDimension <= 0 || longest <= maxDimension) {
		img.MimeType = mimeType
		return img, nil
	}

	src, _, err := image.Decode(bytes.NewReader(img.Data))
	if err != nil {
		return Image{}, WrapExtractionError(op, ErrUnsupportedImage, fmt.Sprintf("%s: %v", img.Name, err))
	}

	dst := src
	if maxDimension > 0 && longest > maxDimension {
		scale := float64(maxDimension) / float64(longest)
		w := max(1, int(float64(cfg.Width)*scale))
		h := max(1, int(float64(cfg.Height)*scale))

		scaled := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)
		dst = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return Image{}, WrapExtractionError(op, err, "failed to encode JPEG")
	}

	return Image{
		Data:     buf.Bytes(),
		MimeType: "image/jpeg",
		Name:     img.Name,
	}, nil
}

// DataURL encodes the image for inline use in a chat message.
func (img Image) DataURL() string {
	mimeType := img.MimeType
	if mimeType == "" {
		mimeType = http.DetectContentType(img.Data)
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}
