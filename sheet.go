package main

import (
	"fmt"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/inconsolata"
)

// renderSheet composes every extracted sprite into one labeled contact sheet,
// 16 cells per row, entity ids drawn shadowed in the cell corner.
func renderSheet(name string, entries []*Extraction) error {
	const cell = 136 // max 128px sprite plus padding
	const cols = 16
	rows := (len(entries) + cols - 1) / cols

	dc := gg.NewContext(cols*cell, rows*cell)
	dc.SetRGB(0.12, 0.12, 0.12)
	dc.Clear()
	dc.SetFontFace(inconsolata.Bold8x16)

	for i, ex := range entries {
		cx := (i % cols) * cell
		cy := (i / cols) * cell

		b := ex.Image.Bounds()
		dc.DrawImage(ex.Image, cx+(cell-b.Dx())/2, cy+(cell-b.Dy())/2)

		label := fmt.Sprintf("%02X", uint8(ex.Entity))
		dc.SetRGB(0, 0, 0)
		dc.DrawString(label, float64(cx+5), float64(cy+17))
		dc.SetRGB(1, 1, 1)
		dc.DrawString(label, float64(cx+4), float64(cy+16))
	}

	return dc.SavePNG(name)
}
