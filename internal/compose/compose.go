// Package compose assembles the final output image for a try-on job
// according to the requested show type, and serializes it to PNG.
package compose

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"github.com/vtonlab/vton-service/internal/model"
)

// separator is the gap in pixels between the conditions column and the result.
const separator = 5

// Output builds the final image for the given show type.
//
//   - "result only": the generated image as-is.
//   - "input & result": a half-width column of person and cloth pasted left
//     of the result.
//   - "input & mask & result": a third-width column of person, masked person
//     and cloth pasted left of the result.
func Output(result, person, cloth, mask image.Image, showType string) (image.Image, error) {
	switch showType {
	case model.ShowTypeResultOnly:
		return result, nil
	case model.ShowTypeInputResult, model.ShowTypeInputMaskResult:
	default:
		return nil, fmt.Errorf("unknown show type: %q", showType)
	}

	width := person.Bounds().Dx()
	height := person.Bounds().Dy()

	var conditions image.Image
	var conditionWidth int

	if showType == model.ShowTypeInputResult {
		conditionWidth = width / 2
		conditions = grid([]image.Image{person, cloth}, 2, 1)
	} else {
		conditionWidth = width / 3
		conditions = grid([]image.Image{person, visMask(person, mask), cloth}, 3, 1)
	}

	conditions = imaging.Resize(conditions, conditionWidth, height, imaging.NearestNeighbor)

	out := imaging.New(width+conditionWidth+separator, height, color.Black)
	out = imaging.Paste(out, conditions, image.Pt(0, 0))
	out = imaging.Paste(out, result, image.Pt(conditionWidth+separator, 0))

	return out, nil
}

// EncodePNG serializes the image to PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	return buf.Bytes(), nil
}

// grid pastes the images into a rows x cols grid. All images are assumed to
// share the size of the first one.
func grid(imgs []image.Image, rows, cols int) image.Image {
	w := imgs[0].Bounds().Dx()
	h := imgs[0].Bounds().Dy()

	out := imaging.New(cols*w, rows*h, color.Black)
	for i, img := range imgs {
		out = imaging.Paste(out, img, image.Pt(i%cols*w, i/cols*h))
	}

	return out
}

// visMask draws the person image with the masked region highlighted in
// semi-transparent red.
func visMask(person, mask image.Image) image.Image {
	b := person.Bounds()

	overlay := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	mb := mask.Bounds()
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			// Map person coordinates onto the mask in case sizes differ.
			mx := mb.Min.X + x*mb.Dx()/b.Dx()
			my := mb.Min.Y + y*mb.Dy()/b.Dy()

			if gray, _, _, _ := mask.At(mx, my).RGBA(); gray > 0x7fff {
				overlay.SetNRGBA(x, y, color.NRGBA{R: 255, A: 128})
			}
		}
	}

	dc := gg.NewContextForImage(person)
	dc.DrawImage(overlay, 0, 0)

	return dc.Image()
}
