package main

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestScoreIsolatedPixel(t *testing.T) {
	g := image.NewNRGBA(image.Rect(0, 0, 3, 3))
	g.SetNRGBA(1, 1, color.NRGBA{0xFF, 0, 0, 0xFF})
	// opaque=1, connections=0: coherence term is zero, score is the pixel
	// count alone
	if got := scoreSprite(g); got != 1 {
		t.Fatalf("score = %v, want 1", got)
	}
}

func TestScoreSolidBlock(t *testing.T) {
	g := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			g.SetNRGBA(x, y, color.NRGBA{0, 0xFF, 0, 0xFF})
		}
	}
	// opaque=64, connections=2*8*7=112: 112/64*1000 + 64
	if got := scoreSprite(g); got != 1814 {
		t.Fatalf("score = %v, want 1814", got)
	}
}

func TestScoreEmptyCanvas(t *testing.T) {
	g := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	if got := scoreSprite(g); got != discardScore {
		t.Fatalf("score = %v, want discard sentinel", got)
	}
}

func TestScorePrefersCoherent(t *testing.T) {
	coherent := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	scattered := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	c := color.NRGBA{0xFF, 0xFF, 0xFF, 0xFF}
	for i := 0; i < 8; i++ {
		coherent.SetNRGBA(i, 0, c) // one solid row
		scattered.SetNRGBA(i, i, c) // a diagonal: same count, no neighbors
	}
	if scoreSprite(coherent) <= scoreSprite(scattered) {
		t.Error("connected pixels must outrank scattered ones")
	}
}

// End-to-end: a hand-built image where one entity resolves through all five
// chain stages to a single solid 8x8 tile.
func TestExtractSolidEntity(t *testing.T) {
	r := testROM()
	buildEntity(t, r, 0x12, 0x40)

	// no placements: the sweep runs over the zeroed parameter table, which
	// dedupes to a single candidate
	ex, err := r.extractEntity(0x12, nil)
	if err != nil {
		t.Fatal(err)
	}
	if ex.Score != 1814 {
		t.Errorf("score = %v, want 1814", ex.Score)
	}
	if ex.Config.Stage != -1 || ex.Mapped {
		t.Errorf("config %+v mapped=%v, want sweep result", ex.Config, ex.Mapped)
	}
	if b := ex.Image.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
		t.Fatalf("canvas %v, want 8x8", b)
	}

	// every pixel decodes to index 1 of attribute palette 1:
	want := nesColor(mm3.DefaultSpritePalettes[5])
	opaque := 0
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			px := ex.Image.NRGBAAt(x, y)
			if px.A == 0 {
				continue
			}
			opaque++
			if px != want {
				t.Fatalf("pixel (%d,%d) = %+v, want %+v", x, y, px, want)
			}
		}
	}
	if opaque != 64 {
		t.Errorf("%d opaque pixels, want 64", opaque)
	}
}

func TestExtractDegenerateBoxFails(t *testing.T) {
	r := testROM()
	buildEntity(t, r, 0x12, 0x40)
	// stretch the definition to two sprites 208 pixels apart:
	pokePrg(t, r, mm3.AnimBankLo, 0x9100, 0x01, 0x07, 0x40, 0x01, 0x40, 0x01)
	pokePrg(t, r, mm3.PosBank, 0xB000, 0x00, 0x94, 0x00, 0x64) // x = -108, +100

	_, err := r.extractEntity(0x12, nil)
	if err == nil {
		t.Fatal("oversized bounding box must fail the entity, not crash")
	}
	if !errors.Is(err, ErrDegenerateBox) {
		t.Fatalf("got %v, want ErrDegenerateBox", err)
	}
}

func TestExtractMissingOAMIDDistinct(t *testing.T) {
	r := testROM()
	_, err := r.extractEntity(0x12, nil)
	if !errors.Is(err, ErrMissingOAMID) {
		t.Fatalf("got %v, want the entity-fatal ErrMissingOAMID", err)
	}
}

func TestExtractPicksBestCandidate(t *testing.T) {
	r := testROM()
	buildEntity(t, r, 0x12, 0x9C) // stage-local tile, decoded via window 4

	// tile $9C sits at PPU $1C E0... place solid data where selector values
	// 2 and 3 would map it; selector 3 gets the solid tile, selector 2 noise:
	ppu := mm3.SpritePatternBase + uint16(0x9C)*16 // $19C0, window 4
	local := uint32(ppu-0x1800) % mm3.ChrPageSize
	pokeChr(r, 3, local, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
	pokeChr(r, 2, local, 0x01) // single corner pixel

	placed := map[EntityID][]CHRConfig{
		0x12: {
			{Stage: 0, Param: 0, Regs: CHRRegs{0, 0, 0, 1, 2, 0}},
			{Stage: 0, Param: 1, Regs: CHRRegs{0, 0, 0, 1, 3, 0}},
		},
	}
	ex, err := r.extractEntity(0x12, placed)
	if err != nil {
		t.Fatal(err)
	}
	if ex.Config.Param != 1 {
		t.Fatalf("picked param %d, want the coherent candidate", ex.Config.Param)
	}
	if !ex.Mapped || ex.Score != 1814 {
		t.Errorf("mapped=%v score=%v", ex.Mapped, ex.Score)
	}
}
