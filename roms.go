package main

import (
	"errors"
	"fmt"
)

// ErrOutOfRange marks a logical address that falls outside the translatable
// program or graphics regions.
var ErrOutOfRange = errors.New("address out of range")

const mmc3Mapper = 4

// romLayout names every structural constant of one ROM revision's memory map:
// bank geometry, table addresses, sentinels and window boundaries. All table
// walking goes through a layout value so a different revision means a new
// layout, not code changes.
type romLayout struct {
	HeaderSize  uint32
	PrgBankSize uint32
	PrgBanks    uint32
	ChrPageSize uint32

	PrgWindowBase uint16 // start of the switchable program window
	PrgWindowHigh uint16 // upper 8K half of the switchable window
	FixedBase     uint16 // start of the hard-wired tail region
	FixedBank     uint8  // first of the two trailing banks at FixedBase

	SpritePatternBase uint16 // PPU address of the sprite pattern table

	// per-entity tables, all in EntityBank:
	EntityBank       uint8
	MainRoutineTable uint16
	OamIDTable       uint16
	HitPointsTable   uint16
	EntityCount      int

	// animation banks selected by OAM id bit 7, with split lo/hi pointer
	// tables for animation sequences and sprite definitions:
	AnimBankLo uint8
	AnimBankHi uint8
	AnimPtrLo  uint16
	AnimPtrHi  uint16
	DefPtrLo   uint16
	DefPtrHi   uint16

	// sprite position offset tables; PosBankAlt is selected by bit 7 of a
	// sprite definition's first byte:
	PosBank    uint8
	PosBankAlt uint8
	PosPtrLo   uint16
	PosPtrHi   uint16

	// stage list in the fixed bank and per-stage level tables:
	StageCount        int
	StageBankTable    uint16
	RoomCount         int
	RoomConfigTable   uint16
	RoomParamTable    uint16
	BgPageTable       uint16
	PlacementScreens  uint16
	PlacementEntities uint16
	PlacementMax      int
	PlacementSentinel uint8

	// stage tiers for hypothesis preference, exclusive upper bounds:
	PrimaryStages   int
	SecondaryStages int

	// global tables in ConfigBank:
	ConfigBank    uint8
	ChrParamTable uint16
	PaletteTable  uint16
	ParamCount    int
	ParamSentinel uint8

	// pattern-table pages that are never swapped per room:
	SharedPages [2]uint8

	// SP0/SP1 palette bytes, fixed regardless of parameter:
	DefaultSpritePalettes [8]uint8

	StageNames []string
}

var mm3 = romLayout{
	HeaderSize:  16,
	PrgBankSize: 0x2000,
	PrgBanks:    0x20,
	ChrPageSize: 0x400,

	PrgWindowBase: 0x8000,
	PrgWindowHigh: 0xA000,
	FixedBase:     0xC000,
	FixedBank:     0x1E,

	SpritePatternBase: 0x1000,

	EntityBank:       0x00,
	MainRoutineTable: 0xA100,
	OamIDTable:       0xA300,
	HitPointsTable:   0xA400,
	EntityCount:      0x90,

	AnimBankLo: 0x1A,
	AnimBankHi: 0x1B,
	AnimPtrLo:  0x8000,
	AnimPtrHi:  0x8080,
	DefPtrLo:   0x8100,
	DefPtrHi:   0x8200,

	PosBank:    0x19,
	PosBankAlt: 0x14,
	PosPtrLo:   0xBE00,
	PosPtrHi:   0xBF00,

	StageCount:        0x12,
	StageBankTable:    0xC8B9,
	RoomCount:         32,
	RoomConfigTable:   0xAA40,
	RoomParamTable:    0xAA60,
	BgPageTable:       0xAA80,
	PlacementScreens:  0xAB00,
	PlacementEntities: 0xAE00,
	PlacementMax:      256,
	PlacementSentinel: 0xFF,

	PrimaryStages:   8,
	SecondaryStages: 12,

	ConfigBank:    0x01,
	ChrParamTable: 0xA200,
	PaletteTable:  0xA030,
	ParamCount:    0x3A,
	ParamSentinel: 0x40,

	SharedPages: [2]uint8{0x00, 0x01},

	// SP0: player (black, sky-blue, blue); SP1: projectiles (black, white,
	// pale yellow); both live in the fixed bank:
	DefaultSpritePalettes: [8]uint8{0x0F, 0x0F, 0x2C, 0x11, 0x0F, 0x0F, 0x30, 0x37},

	StageNames: []string{
		"Needle", "Magnet", "Gemini", "Hard", "Top", "Snake", "Spark", "Shadow",
		"DR-Needle", "DR-Gemini", "DR-Shadow", "DR-Spark",
		"Wily1", "Wily2", "Wily3", "Wily4", "Wily5", "Wily6",
	},
}

// chrStart is the file offset of the graphics region, immediately after the
// program banks.
func (m *romLayout) chrStart() uint32 {
	return m.HeaderSize + m.PrgBanks*m.PrgBankSize
}

func (m *romLayout) stageName(stage int) string {
	if stage >= 0 && stage < len(m.StageNames) {
		return m.StageNames[stage]
	}
	return "none"
}

// ROM is the immutable binary image plus the layout describing it. Nothing
// ever writes to data.
type ROM struct {
	data []byte
	m    *romLayout
}

// prgOffset translates a (bank, logical address) pair in the program region
// to a file offset. Addresses at or above FixedBase ignore bank and map to
// the two hard-wired trailing banks; the switchable window maps an 8K bank
// into either of its two halves.
func (r *ROM) prgOffset(bank uint8, addr uint16) (uint32, error) {
	m := r.m
	a := uint32(addr)
	switch {
	case a >= uint32(m.FixedBase):
		rel := a - uint32(m.FixedBase)
		fixed := uint32(m.FixedBank) + rel/m.PrgBankSize
		return m.HeaderSize + fixed*m.PrgBankSize + rel%m.PrgBankSize, nil
	case a >= uint32(m.PrgWindowHigh):
		return m.HeaderSize + uint32(bank)*m.PrgBankSize + a - uint32(m.PrgWindowHigh), nil
	case a >= uint32(m.PrgWindowBase):
		return m.HeaderSize + uint32(bank)*m.PrgBankSize + a - uint32(m.PrgWindowBase), nil
	}
	return 0, fmt.Errorf("prg address $%04X below program region: %w", addr, ErrOutOfRange)
}

// readPrg reads one byte through the program-region translation. All callers
// pass either table addresses from the layout or pointers already validated
// against their window, so translation failure here is a programming error.
func (r *ROM) readPrg(bank uint8, addr uint16) uint8 {
	off, err := r.prgOffset(bank, addr)
	if err != nil {
		panic(err)
	}
	return r.data[off]
}

// chrOffset translates a PPU address to a file offset in the graphics region
// under six window selectors: two 2K windows of consecutive 1K pages, then
// four direct 1K windows.
func (r *ROM) chrOffset(ppu uint16, regs CHRRegs) uint32 {
	m := r.m
	base := m.chrStart()
	switch {
	case ppu < 0x0800:
		page := uint32(regs[0]) + uint32(ppu>>10)
		return base + page*m.ChrPageSize + uint32(ppu&0x3FF)
	case ppu < 0x1000:
		rel := ppu - 0x0800
		page := uint32(regs[1]) + uint32(rel>>10)
		return base + page*m.ChrPageSize + uint32(rel&0x3FF)
	default:
		w := 2 + int((ppu-0x1000)>>10)
		return base + uint32(regs[w])*m.ChrPageSize + uint32(ppu&0x3FF)
	}
}

func read8(b []byte, addr uint32) uint8 {
	return b[addr]
}
