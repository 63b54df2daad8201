package resources

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"

	"fyne.io/fyne/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// IconSize is the edge length of generated tray icons in pixels.
const IconSize = 32

var (
	countdownBackground = color.RGBA{R: 0x3B, G: 0x82, B: 0xF6, A: 0xFF}
	idleForeground      = color.RGBA{R: 0x3B, G: 0x82, B: 0xF6, A: 0xFF}
	textColor           = color.White
)

var iconCache sync.Map

// CountdownIcon returns the tray icon with label drawn on it. Icons are
// cached per label.
func CountdownIcon(label string) (fyne.Resource, error) {
	key := "countdown-" + label + ".png"
	if cached, ok := iconCache.Load(key); ok {
		return cached.(fyne.Resource), nil
	}

	img := image.NewRGBA(image.Rect(0, 0, IconSize, IconSize))
	fillRounded(img, countdownBackground, 6)
	drawCentered(img, label)

	return store(key, img)
}

// DefaultIcon returns the idle tray icon, a plain ring.
func DefaultIcon() fyne.Resource {
	const key = "idle.png"
	if cached, ok := iconCache.Load(key); ok {
		return cached.(fyne.Resource)
	}

	img := image.NewRGBA(image.Rect(0, 0, IconSize, IconSize))
	drawRing(img, idleForeground, IconSize/2-2, 4)
	resource, err := store(key, img)
	if err != nil {
		panic(err)
	}
	return resource
}

func store(key string, img image.Image) (fyne.Resource, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode icon %s: %w", key, err)
	}
	resource := fyne.NewStaticResource(key, buf.Bytes())
	actual, _ := iconCache.LoadOrStore(key, resource)
	return actual.(fyne.Resource), nil
}

func drawCentered(img *image.RGBA, label string) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(textColor),
		Face: face,
	}
	width := drawer.MeasureString(label).Ceil()
	metrics := face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()

	x := (IconSize - width) / 2
	if x < 0 {
		x = 0
	}
	baseline := (IconSize-height)/2 + metrics.Ascent.Ceil()
	drawer.Dot = fixed.P(x, baseline)
	drawer.DrawString(label)
}

func fillRounded(img *image.RGBA, fill color.Color, radius int) {
	size := img.Bounds().Dx()
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if insideRounded(x, y, size, radius) {
				img.Set(x, y, fill)
			}
		}
	}
}

func insideRounded(x, y, size, radius int) bool {
	cx, cy := x, y
	switch {
	case x < radius:
		cx = radius
	case x >= size-radius:
		cx = size - radius - 1
	}
	switch {
	case y < radius:
		cy = radius
	case y >= size-radius:
		cy = size - radius - 1
	}
	dx, dy := x-cx, y-cy
	return dx*dx+dy*dy <= radius*radius
}

func drawRing(img *image.RGBA, stroke color.Color, outer, width int) {
	size := img.Bounds().Dx()
	center := size / 2
	inner := outer - width
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			dx, dy := x-center, y-center
			distance := dx*dx + dy*dy
			if distance <= outer*outer && distance >= inner*inner {
				img.Set(x, y, stroke)
			}
		}
	}
}
