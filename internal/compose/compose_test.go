package compose

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/vtonlab/vton-service/internal/model"
)

func solid(w, h int, c color.Color) image.Image {
	return imaging.New(w, h, c)
}

func testImages() (result, person, cloth, mask image.Image) {
	result = solid(60, 90, color.NRGBA{G: 255, A: 255})
	person = solid(60, 90, color.NRGBA{B: 255, A: 255})
	cloth = solid(60, 90, color.NRGBA{R: 255, A: 255})
	mask = solid(60, 90, color.White)
	return
}

func TestOutput_ResultOnly(t *testing.T) {
	result, person, cloth, mask := testImages()

	out, err := Output(result, person, cloth, mask, model.ShowTypeResultOnly)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	if out != result {
		t.Fatal("result only should return the generated image untouched")
	}
}

func TestOutput_InputAndResult(t *testing.T) {
	result, person, cloth, mask := testImages()

	out, err := Output(result, person, cloth, mask, model.ShowTypeInputResult)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	wantWidth := 60 + 60/2 + separator
	if out.Bounds().Dx() != wantWidth || out.Bounds().Dy() != 90 {
		t.Fatalf("expected %dx90, got %dx%d", wantWidth, out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestOutput_InputMaskAndResult(t *testing.T) {
	result, person, cloth, mask := testImages()

	out, err := Output(result, person, cloth, mask, model.ShowTypeInputMaskResult)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}

	wantWidth := 60 + 60/3 + separator
	if out.Bounds().Dx() != wantWidth || out.Bounds().Dy() != 90 {
		t.Fatalf("expected %dx90, got %dx%d", wantWidth, out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestOutput_UnknownShowType(t *testing.T) {
	result, person, cloth, mask := testImages()

	if _, err := Output(result, person, cloth, mask, "collage"); err == nil {
		t.Fatal("expected error for unknown show type")
	}
}

func TestVisMask_HighlightsMaskedRegion(t *testing.T) {
	person := solid(10, 10, color.NRGBA{B: 255, A: 255})

	// Mask only the top half.
	mask := image.NewGray(image.Rect(0, 0, 10, 10))
	for y := 0; y < 5; y++ {
		for x := 0; x < 10; x++ {
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}

	out := visMask(person, mask)

	tr, _, _, _ := out.At(5, 2).RGBA()
	br, _, _, _ := out.At(5, 8).RGBA()
	if tr <= br {
		t.Fatalf("expected red overlay on masked half: top r=%d bottom r=%d", tr, br)
	}
}

func TestEncodePNG_RoundTrips(t *testing.T) {
	img := solid(8, 8, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	data, err := EncodePNG(img)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty payload")
	}

	decoded, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bounds().Dx() != 8 || decoded.Bounds().Dy() != 8 {
		t.Fatalf("unexpected decoded size %v", decoded.Bounds())
	}
}
