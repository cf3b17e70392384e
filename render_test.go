package main

import (
	"errors"
	"image/color"
	"testing"
)

func TestDecodeTileBitOrder(t *testing.T) {
	r := testROM()
	// tile $40 sits at the start of shared page 1 under the default regs;
	// row 0: low plane $FF -> all index 1; row 1: low $01 -> only the
	// rightmost column; row 2: high $80 -> index 2 in the leftmost column
	pokeChr(r, 1, 0, 0xFF, 0x01, 0x00)
	pokeChr(r, 1, 8+2, 0x80)

	tile := r.decodeTile(0x40, sharedRegs())
	for col := 0; col < 8; col++ {
		if tile[0][col] != 1 {
			t.Errorf("row0 col%d = %d, want 1", col, tile[0][col])
		}
	}
	for col := 0; col < 7; col++ {
		if tile[1][col] != 0 {
			t.Errorf("row1 col%d = %d, want 0", col, tile[1][col])
		}
	}
	if tile[1][7] != 1 {
		t.Errorf("row1 col7 = %d, want 1 (bit 0 is the rightmost pixel)", tile[1][7])
	}
	if tile[2][0] != 2 {
		t.Errorf("row2 col0 = %d, want 2", tile[2][0])
	}
}

func TestDecodeTileDoubleFlip(t *testing.T) {
	r := testROM()
	pokeChr(r, 1, 0, 0x12, 0x34, 0x56, 0x78, 0x9A, 0xBC, 0xDE, 0xF0)
	pokeChr(r, 1, 8, 0x0F, 0xF0, 0xAA, 0x55, 0x00, 0xFF, 0xC3, 0x3C)

	tile := r.decodeTile(0x40, sharedRegs())
	if got := tile.flipped(true, true).flipped(true, true); got != tile {
		t.Error("double flip is not the identity")
	}
	if tile.flipped(true, false) == tile {
		t.Error("fixture tile should not be horizontally symmetric")
	}
}

func TestDecodeTileOutOfRange(t *testing.T) {
	r := testROM()
	// a selector pointing past the end of the image decodes blank, it does
	// not fail:
	regs := CHRRegs{0, 0, 0, 0xFF, 0, 0}
	if tile := r.decodeTile(0x40, regs); tile != (tilePixels{}) {
		t.Error("out-of-range tile should be blank")
	}
}

func TestBuildParamPalettes(t *testing.T) {
	r := testROM()
	pokePrg(t, r, mm3.ConfigBank, mm3.PaletteTable+5*8,
		0x0F, 0x21, 0x11, 0x01, 0x0F, 0x37, 0x27, 0x17)

	pals := r.buildParamPalettes(5)
	for p := 0; p < 4; p++ {
		if pals[p][0] != (color.NRGBA{}) {
			t.Errorf("palette %d slot 0 not transparent: %+v", p, pals[p][0])
		}
	}
	if pals[0][2] != nesColor(mm3.DefaultSpritePalettes[2]) {
		t.Errorf("palette 0 slot 2 = %+v", pals[0][2])
	}
	if pals[2][1] != nesColor(0x21) || pals[3][3] != nesColor(0x17) {
		t.Errorf("param palettes wrong: %+v %+v", pals[2][1], pals[3][3])
	}
}

func TestComposeHFlip(t *testing.T) {
	r := testROM()
	pokeChr(r, 1, 0, 0x80) // row 0: single pixel, leftmost column

	frame := &SpriteFrame{Parts: []SpritePart{{TileID: 0x40, HFlip: true}}}
	g, err := r.composeSprite(frame, sharedRegs(), r.buildParamPalettes(0))
	if err != nil {
		t.Fatal(err)
	}
	if g.NRGBAAt(7, 0).A == 0 {
		t.Error("flipped pixel missing at (7,0)")
	}
	if g.NRGBAAt(0, 0).A != 0 {
		t.Error("unflipped pixel still present at (0,0)")
	}
}

func TestComposeBoundingBox(t *testing.T) {
	r := testROM()
	pokeChr(r, 1, 0, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)

	frame := &SpriteFrame{Parts: []SpritePart{
		{TileID: 0x40, X: -8, Y: 0},
		{TileID: 0x40, X: 8, Y: 8},
	}}
	g, err := r.composeSprite(frame, sharedRegs(), r.buildParamPalettes(0))
	if err != nil {
		t.Fatal(err)
	}
	if w, h := g.Bounds().Dx(), g.Bounds().Dy(); w != 24 || h != 16 {
		t.Fatalf("canvas %dx%d, want 24x16", w, h)
	}
	// part offsets are relative to the box origin:
	if g.NRGBAAt(0, 0).A == 0 || g.NRGBAAt(16, 8).A == 0 {
		t.Error("tiles not placed at box-relative offsets")
	}
	if g.NRGBAAt(16, 0).A != 0 {
		t.Error("gap between tiles should stay transparent")
	}
}

func TestComposeDegenerateBox(t *testing.T) {
	r := testROM()
	frame := &SpriteFrame{Parts: []SpritePart{
		{TileID: 0x40, X: -108, Y: 0},
		{TileID: 0x40, X: 100, Y: 0},
	}}
	_, err := r.composeSprite(frame, sharedRegs(), r.buildParamPalettes(0))
	if !errors.Is(err, ErrDegenerateBox) {
		t.Fatalf("got %v, want ErrDegenerateBox", err)
	}
}

func TestComposeAllTransparent(t *testing.T) {
	r := testROM() // graphics region left blank
	frame := &SpriteFrame{Parts: []SpritePart{{TileID: 0x40}}}
	_, err := r.composeSprite(frame, sharedRegs(), r.buildParamPalettes(0))
	if !errors.Is(err, ErrAllTransparent) {
		t.Fatalf("got %v, want ErrAllTransparent", err)
	}
}
