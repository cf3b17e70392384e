package main

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"

	"golang.org/x/image/draw"
)

var (
	ErrDegenerateBox  = errors.New("degenerate bounding box")
	ErrAllTransparent = errors.New("all tiles transparent")
)

// nesPalette is the fixed 64-entry master color table (2C02 output levels).
var nesPalette = [64][3]uint8{
	{0x62, 0x62, 0x62}, {0x00, 0x1F, 0xB2}, {0x24, 0x04, 0xC8}, {0x52, 0x00, 0xB2},
	{0x73, 0x00, 0x76}, {0x80, 0x00, 0x24}, {0x73, 0x0B, 0x00}, {0x52, 0x28, 0x00},
	{0x24, 0x44, 0x00}, {0x00, 0x57, 0x00}, {0x00, 0x5C, 0x00}, {0x00, 0x53, 0x24},
	{0x00, 0x3C, 0x76}, {0x00, 0x00, 0x00}, {0x00, 0x00, 0x00}, {0x00, 0x00, 0x00},
	{0xAB, 0xAB, 0xAB}, {0x0D, 0x57, 0xFF}, {0x4B, 0x30, 0xFF}, {0x8A, 0x13, 0xFF},
	{0xBC, 0x08, 0xD6}, {0xD2, 0x12, 0x69}, {0xC7, 0x2E, 0x00}, {0x9D, 0x54, 0x00},
	{0x60, 0x7B, 0x00}, {0x20, 0x98, 0x00}, {0x00, 0xA3, 0x00}, {0x00, 0x99, 0x42},
	{0x00, 0x7D, 0xB4}, {0x00, 0x00, 0x00}, {0x00, 0x00, 0x00}, {0x00, 0x00, 0x00},
	{0xFF, 0xFF, 0xFF}, {0x53, 0xAE, 0xFF}, {0x90, 0x85, 0xFF}, {0xD3, 0x65, 0xFF},
	{0xFF, 0x57, 0xFF}, {0xFF, 0x5D, 0xCF}, {0xFF, 0x77, 0x57}, {0xFF, 0x9E, 0x13},
	{0xB5, 0xC5, 0x00}, {0x6E, 0xE2, 0x00}, {0x38, 0xED, 0x2E}, {0x12, 0xE5, 0x8C},
	{0x20, 0xC8, 0xFB}, {0x3C, 0x3C, 0x3C}, {0x00, 0x00, 0x00}, {0x00, 0x00, 0x00},
	{0xFF, 0xFF, 0xFF}, {0xB6, 0xDA, 0xFF}, {0xCE, 0xCA, 0xFF}, {0xE9, 0xBE, 0xFF},
	{0xFF, 0xB8, 0xFF}, {0xFF, 0xBA, 0xEA}, {0xFF, 0xC5, 0xBD}, {0xFF, 0xD5, 0x9A},
	{0xE1, 0xE5, 0x8D}, {0xBE, 0xF0, 0x8D}, {0xA4, 0xF5, 0xA2}, {0x98, 0xF2, 0xC8},
	{0x9E, 0xE8, 0xFC}, {0xAE, 0xAE, 0xAE}, {0x00, 0x00, 0x00}, {0x00, 0x00, 0x00},
}

func nesColor(idx uint8) color.NRGBA {
	c := nesPalette[idx&0x3F]
	return color.NRGBA{R: c[0], G: c[1], B: c[2], A: 0xFF}
}

// Palette holds four colors; slot 0 is left at the zero value and never
// contributes color, whatever the stored byte says.
type Palette [4]color.NRGBA

// buildParamPalettes builds the four sprite palettes live under one
// CHR/palette parameter: palettes 0-1 from the fixed default table, 2-3 from
// the parameter-indexed table in the config bank.
func (r *ROM) buildParamPalettes(param uint8) (pals [4]Palette) {
	m := r.m
	for p := 0; p < 2; p++ {
		for c := 1; c < 4; c++ {
			pals[p][c] = nesColor(m.DefaultSpritePalettes[p*4+c])
		}
	}
	tableOff, _ := r.prgOffset(m.ConfigBank, m.PaletteTable+uint16(param)*8)
	for p := 0; p < 2; p++ {
		for c := 1; c < 4; c++ {
			pals[2+p][c] = nesColor(read8(r.data, tableOff+uint32(p*4+c)))
		}
	}
	return
}

// tilePixels is one decoded 8x8 tile of 2-bit palette indices.
type tilePixels [8][8]uint8

// decodeTile decodes one 16-byte 2bpp tile from the sprite pattern table.
// Row r combines the low-plane byte at r with the high-plane byte at r+8,
// columns most-significant-bit first. A physical offset outside the image
// decodes to a blank tile so a wrong bank hypothesis degrades to
// transparency instead of aborting the scan.
func (r *ROM) decodeTile(tileID uint8, regs CHRRegs) (t tilePixels) {
	ppu := r.m.SpritePatternBase + uint16(tileID)*16
	off := r.chrOffset(ppu, regs)
	if off+16 > uint32(len(r.data)) {
		return
	}
	for row := 0; row < 8; row++ {
		lo := read8(r.data, off+uint32(row))
		hi := read8(r.data, off+uint32(row)+8)
		for col := 0; col < 8; col++ {
			m := uint8(1) << (7 - col)
			px := uint8(0)
			if lo&m != 0 {
				px |= 0b01
			}
			if hi&m != 0 {
				px |= 0b10
			}
			t[row][col] = px
		}
	}
	return
}

// flipped returns the tile mirrored horizontally and/or vertically.
func (t tilePixels) flipped(h, v bool) tilePixels {
	if !h && !v {
		return t
	}
	var f tilePixels
	for row := 0; row < 8; row++ {
		sr := row
		if v {
			sr = 7 - row
		}
		for col := 0; col < 8; col++ {
			sc := col
			if h {
				sc = 7 - col
			}
			f[row][col] = t[sr][sc]
		}
	}
	return f
}

// composeSprite renders every part of a frame onto a transparent canvas
// sized to the parts' bounding box, under one set of graphics window
// selectors.
func (r *ROM) composeSprite(frame *SpriteFrame, regs CHRRegs, pals [4]Palette) (*image.NRGBA, error) {
	minX, minY := frame.Parts[0].X, frame.Parts[0].Y
	maxX, maxY := minX+8, minY+8
	for i := range frame.Parts[1:] {
		s := &frame.Parts[1+i]
		if s.X < minX {
			minX = s.X
		}
		if s.Y < minY {
			minY = s.Y
		}
		if s.X+8 > maxX {
			maxX = s.X + 8
		}
		if s.Y+8 > maxY {
			maxY = s.Y + 8
		}
	}

	w, h := maxX-minX, maxY-minY
	if w <= 0 || h <= 0 || w > 128 || h > 128 {
		return nil, fmt.Errorf("%dx%d: %w", w, h, ErrDegenerateBox)
	}

	g := image.NewNRGBA(image.Rect(0, 0, w, h))
	opaque := false
	for i := range frame.Parts {
		s := &frame.Parts[i]
		tile := r.decodeTile(s.TileID, regs).flipped(s.HFlip, s.VFlip)
		pal := &pals[s.Palette]
		bx, by := s.X-minX, s.Y-minY
		for row := 0; row < 8; row++ {
			for col := 0; col < 8; col++ {
				px := tile[row][col]
				if px == 0 {
					continue
				}
				g.SetNRGBA(bx+col, by+row, pal[px])
				opaque = true
			}
		}
	}

	if !opaque {
		return nil, fmt.Errorf("%dx%d: %w", w, h, ErrAllTransparent)
	}
	return g, nil
}

// scaleNearest integer-upscales a rendering for visibility.
func scaleNearest(src image.Image, factor int) image.Image {
	if factor <= 1 {
		return src
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func exportPNG(name string, g image.Image) (err error) {
	var po *os.File

	po, err = os.OpenFile(name, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer func() {
		cerr := po.Close()
		if err == nil {
			err = cerr
		}
	}()

	bo := bufio.NewWriterSize(po, 64*1024)

	if err = png.Encode(bo, g); err != nil {
		return
	}

	return bo.Flush()
}
