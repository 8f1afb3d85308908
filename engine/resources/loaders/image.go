package loaders

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/draw"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"github.com/spaghettifunk/gravity/engine/core"
)

// ImageLoader decodes an image file into a tightly packed RGBA blob with a
// small dimensions header, so downstream texture uploads never re-decode.
// Blob layout: width uint32, height uint32, then width*height*4 RGBA bytes,
// all little endian.
type ImageLoader struct{}

func (ImageLoader) Load(path string, data []byte) ([]byte, error) {
	source, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		core.LogError("unable to decode image; path: %s, error: %v", path, err)
		return nil, core.WrapInternal(err, "decoding image %s", path)
	}

	bounds := source.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), source, bounds.Min, draw.Src)

	out := make([]byte, 8, 8+len(rgba.Pix))
	binary.LittleEndian.PutUint32(out[0:4], uint32(bounds.Dx()))
	binary.LittleEndian.PutUint32(out[4:8], uint32(bounds.Dy()))
	out = append(out, rgba.Pix...)

	core.LogDebug("decoded image; path: %s, format: %s, extent: %dx%d", path, format, bounds.Dx(), bounds.Dy())
	return out, nil
}
