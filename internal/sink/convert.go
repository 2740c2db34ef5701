package sink

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"

	"github.com/acuvio/camlink/internal/camera"
	"github.com/acuvio/camlink/internal/sdk"
)

// ToRGBA converts a frame's pixel buffer to an RGBA image. Mono16 is reduced
// to its high byte (little-endian buffer order).
func ToRGBA(f *camera.Frame) (*image.RGBA, error) {
	bpp := f.Format.BytesPerPixel()
	if bpp == 0 {
		return nil, fmt.Errorf("sink: unsupported pixel format %q", f.Format)
	}
	if len(f.Data) < f.Width*f.Height*bpp {
		return nil, fmt.Errorf("sink: short frame buffer: %d bytes for %dx%d %s",
			len(f.Data), f.Width, f.Height, f.Format)
	}

	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	n := f.Width * f.Height
	switch f.Format {
	case sdk.Mono8:
		for i := 0; i < n; i++ {
			v := f.Data[i]
			img.Pix[i*4+0] = v
			img.Pix[i*4+1] = v
			img.Pix[i*4+2] = v
			img.Pix[i*4+3] = 0xff
		}
	case sdk.Mono16:
		for i := 0; i < n; i++ {
			v := f.Data[i*2+1]
			img.Pix[i*4+0] = v
			img.Pix[i*4+1] = v
			img.Pix[i*4+2] = v
			img.Pix[i*4+3] = 0xff
		}
	case sdk.RGB8:
		for i := 0; i < n; i++ {
			img.Pix[i*4+0] = f.Data[i*3+0]
			img.Pix[i*4+1] = f.Data[i*3+1]
			img.Pix[i*4+2] = f.Data[i*3+2]
			img.Pix[i*4+3] = 0xff
		}
	case sdk.BGR8:
		for i := 0; i < n; i++ {
			img.Pix[i*4+0] = f.Data[i*3+2]
			img.Pix[i*4+1] = f.Data[i*3+1]
			img.Pix[i*4+2] = f.Data[i*3+0]
			img.Pix[i*4+3] = 0xff
		}
	case sdk.RGBA8:
		copy(img.Pix, f.Data[:n*4])
	default:
		return nil, fmt.Errorf("sink: unsupported pixel format %q", f.Format)
	}
	return img, nil
}

// scaleRGBA resizes src to width x height, returning src unchanged when the
// dimensions already match.
func scaleRGBA(src *image.RGBA, width, height int) *image.RGBA {
	b := src.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return src
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
