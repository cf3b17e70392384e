package main

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingOAMID is entity-fatal; the entity genuinely has no sprite.
	ErrMissingOAMID = errors.New("entity has no OAM id")

	ErrBadAnimPointer   = errors.New("animation pointer outside program window")
	ErrMissingSpriteDef = errors.New("animation has no sprite definition")
	ErrBadDefPointer    = errors.New("sprite definition pointer outside program window")
	ErrBadPosPointer    = errors.New("position pointer outside position window")
)

type EntityID uint8

func (id EntityID) String() string {
	return fmt.Sprintf("$%02X", uint8(id))
}

// SpritePart is one 8x8 tile of a composed frame: which tile, where, how.
type SpritePart struct {
	TileID  uint8
	X, Y    int
	Palette uint8
	HFlip   bool
	VFlip   bool
}

// SpriteFrame is the fully resolved first animation frame of an entity,
// together with the diagnostics read along the pointer chain.
type SpriteFrame struct {
	Parts []SpritePart

	OAMID       uint8
	AnimBank    uint8
	SpriteDefID uint8
	AltPosBank  bool
	HitPoints   uint8
	MainRoutine uint8
}

// splitPointer assembles a little-endian pointer stored across parallel
// low-byte and high-byte tables indexed identically. The animation, sprite
// definition and position pointers are all stored this way.
func (r *ROM) splitPointer(bank uint8, loTable, hiTable uint16, index uint8) uint16 {
	lo := r.readPrg(bank, loTable+uint16(index))
	hi := r.readPrg(bank, hiTable+uint16(index))
	return uint16(hi)<<8 | uint16(lo)
}

// resolveEntity walks the five-stage pointer chain from an entity id to its
// first animation frame:
//
//	entity -> OAM id -> animation bank -> animation sequence
//	       -> sprite definition -> tiles + position offsets
//
// Every pointer read from a split table is validated against its expected
// window before it is dereferenced; a pointer outside its window fails the
// chain at that stage.
func (r *ROM) resolveEntity(id EntityID) (*SpriteFrame, error) {
	m := r.m

	// stage 1: OAM id selects the entity's animation set:
	oamID := r.readPrg(m.EntityBank, m.OamIDTable+uint16(id))
	if oamID == 0 {
		return nil, fmt.Errorf("entity %s: %w", id, ErrMissingOAMID)
	}

	// stage 2: bit 7 selects one of the two animation banks:
	animBank := m.AnimBankLo
	if oamID&0x80 != 0 {
		animBank = m.AnimBankHi
	}
	animIndex := oamID & 0x7F

	// stage 3: animation sequence pointer:
	animPtr := r.splitPointer(animBank, m.AnimPtrLo, m.AnimPtrHi, animIndex)
	if animPtr < m.PrgWindowBase || animPtr >= m.PrgWindowHigh {
		return nil, fmt.Errorf("entity %s anim $%04X: %w", id, animPtr, ErrBadAnimPointer)
	}

	// stage 4: sequence header is frame count, duration, then one sprite
	// definition id per frame; only the first frame is consumed:
	animOff, _ := r.prgOffset(animBank, animPtr)
	defID := read8(r.data, animOff+2)
	if defID == 0 {
		return nil, fmt.Errorf("entity %s: %w", id, ErrMissingSpriteDef)
	}

	// stage 5: sprite definition pointer:
	defPtr := r.splitPointer(animBank, m.DefPtrLo, m.DefPtrHi, defID)
	if defPtr < m.PrgWindowBase || defPtr >= m.PrgWindowHigh {
		return nil, fmt.Errorf("entity %s def $%04X: %w", id, defPtr, ErrBadDefPointer)
	}
	defOff, _ := r.prgOffset(animBank, defPtr)

	// definition byte 0: bit 7 selects the alternate position bank, low 7
	// bits are the 0-based sprite count; byte 1 indexes the position tables:
	b0 := read8(r.data, defOff)
	altPos := b0&0x80 != 0
	count := int(b0&0x7F) + 1
	posIndex := read8(r.data, defOff+1)

	posBank := m.PosBank
	if altPos {
		posBank = m.PosBankAlt
	}
	posPtr := r.splitPointer(posBank, m.PosPtrLo, m.PosPtrHi, posIndex)
	if posPtr < m.PrgWindowHigh || posPtr >= m.FixedBase {
		return nil, fmt.Errorf("entity %s pos $%04X: %w", id, posPtr, ErrBadPosPointer)
	}
	posOff, _ := r.prgOffset(posBank, posPtr)

	parts := make([]SpritePart, count)
	for i := 0; i < count; i++ {
		tileID := read8(r.data, defOff+2+uint32(i)*2)
		attr := read8(r.data, defOff+3+uint32(i)*2)
		// position entries are stored (y, x), two's complement:
		y := int(int8(read8(r.data, posOff+uint32(i)*2)))
		x := int(int8(read8(r.data, posOff+uint32(i)*2+1)))
		parts[i] = SpritePart{
			TileID:  tileID,
			X:       x,
			Y:       y,
			Palette: attr & 0x03,
			HFlip:   attr&0x40 != 0,
			VFlip:   attr&0x80 != 0,
		}
	}

	return &SpriteFrame{
		Parts:       parts,
		OAMID:       oamID,
		AnimBank:    animBank,
		SpriteDefID: defID,
		AltPosBank:  altPos,
		HitPoints:   r.readPrg(m.EntityBank, m.HitPointsTable+uint16(id)),
		MainRoutine: r.readPrg(m.EntityBank, m.MainRoutineTable+uint16(id)),
	}, nil
}

// usesStageTiles reports whether the entity's first frame references any tile
// in the stage-local half of the pattern table. Entities built entirely from
// shared tiles render identically under every bank hypothesis.
func (r *ROM) usesStageTiles(id EntityID) bool {
	frame, err := r.resolveEntity(id)
	if err != nil {
		return false
	}
	for i := range frame.Parts {
		if frame.Parts[i].TileID >= 0x80 {
			return true
		}
	}
	return false
}
