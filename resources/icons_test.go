package resources

import (
	"bytes"
	"image/png"
	"testing"
)

func TestCountdownIconRendersAndCaches(t *testing.T) {
	first, err := CountdownIcon("59m")
	if err != nil {
		t.Fatalf("CountdownIcon: %v", err)
	}
	again, err := CountdownIcon("59m")
	if err != nil {
		t.Fatalf("CountdownIcon: %v", err)
	}
	if first != again {
		t.Fatalf("icon not cached")
	}

	img, err := png.Decode(bytes.NewReader(first.Content()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if img.Bounds().Dx() != IconSize || img.Bounds().Dy() != IconSize {
		t.Fatalf("bounds = %v", img.Bounds())
	}

	other, _ := CountdownIcon("5")
	if bytes.Equal(other.Content(), first.Content()) {
		t.Fatalf("different labels rendered identically")
	}
}

func TestDefaultIcon(t *testing.T) {
	icon := DefaultIcon()
	if icon.Name() != "idle.png" {
		t.Fatalf("name = %q", icon.Name())
	}
	img, err := png.Decode(bytes.NewReader(icon.Content()))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	_, _, _, alpha := img.At(IconSize/2, IconSize/2).RGBA()
	if alpha != 0 {
		t.Fatalf("ring center is filled")
	}
}
