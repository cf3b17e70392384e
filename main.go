package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"spriterip/taskqueue"
	"strconv"
	"sync"

	"github.com/retroenv/retrogolib/arch/system/nes/cartridge"
)

var (
	outDir    string
	scale     int
	drawSheet bool
)

func main() {
	var err error

	nWorkers := -1
	entStr := ""
	entMinStr, entMaxStr := "", ""
	flag.StringVar(&outDir, "o", "enemy_sprites", "output directory for sprite PNGs")
	flag.IntVar(&scale, "scale", 3, "integer upscale factor for output PNGs")
	flag.BoolVar(&drawSheet, "sheet", false, "render sheet.png atlas of all extracted sprites")
	flag.StringVar(&entStr, "ent", "", "single entity ID (hex)")
	flag.StringVar(&entMinStr, "entmin", "0", "entity ID range minimum (hex)")
	flag.StringVar(&entMaxStr, "entmax", "8F", "entity ID range maximum (hex)")
	flag.IntVar(&nWorkers, "n", -1, "number of parallel workers (-1 = CPU count)")
	flag.Parse()

	if nWorkers <= 0 {
		nWorkers = runtime.NumCPU()
	}

	args := flag.Args()
	romPath := "mm3.nes"
	if len(args) > 0 {
		romPath = args[0]
	}

	var data []byte
	if data, err = os.ReadFile(romPath); err != nil {
		panic(err)
	}

	// validate the iNES container before trusting raw offsets into it:
	var cart *cartridge.Cartridge
	if cart, err = cartridge.LoadFile(bytes.NewReader(data)); err != nil {
		panic(err)
	}
	if int(cart.Mapper) != mmc3Mapper {
		panic(fmt.Errorf("%s: unexpected mapper %d (want %d)", romPath, cart.Mapper, mmc3Mapper))
	}
	if uint32(len(cart.PRG)) != mm3.PrgBanks*mm3.PrgBankSize {
		panic(fmt.Errorf("%s: unexpected PRG size $%X (want $%X)",
			romPath, len(cart.PRG), mm3.PrgBanks*mm3.PrgBankSize))
	}

	rom := &ROM{data: data, m: &mm3}

	// entity id range:
	entMin, entMax := 0, mm3.EntityCount-1
	if v, perr := strconv.ParseUint(entMinStr, 16, 8); perr == nil {
		entMin = int(v)
	}
	if v, perr := strconv.ParseUint(entMaxStr, 16, 8); perr == nil {
		entMax = int(v)
	}
	if entStr != "" {
		if v, perr := strconv.ParseUint(entStr, 16, 8); perr == nil {
			entMin, entMax = int(v), int(v)
		}
	}
	if entMax > mm3.EntityCount-1 {
		entMax = mm3.EntityCount - 1
	}
	if entMin > entMax {
		entMin, entMax = entMax, entMin
	}

	_ = os.MkdirAll(outDir, 0755)

	// primary evidence first: scan every stage's placement tables once and
	// share the result across workers:
	placed := rom.buildEntityCHRMap()
	fmt.Printf("entity CHR mapping: %d entities in level data\n", len(placed))

	results := make(map[EntityID]*Extraction, mm3.EntityCount)
	failures := make(map[EntityID]error, mm3.EntityCount)
	resultsLock := sync.Mutex{}

	q := taskqueue.NewQ[EntityID](nWorkers, mm3.EntityCount, func(id EntityID) {
		ex, eerr := rom.extractEntity(id, placed)

		resultsLock.Lock()
		defer resultsLock.Unlock()
		if eerr != nil {
			failures[id] = eerr
			return
		}
		results[id] = ex
	})
	for i := entMin; i <= entMax; i++ {
		q.Submit(EntityID(i))
	}
	q.Wait()
	q.Close()

	// report in id order:
	extracted, skipped := 0, 0
	sheetEntries := make([]*Extraction, 0, entMax-entMin+1)
	for i := entMin; i <= entMax; i++ {
		id := EntityID(i)

		ex, ok := results[id]
		if !ok {
			ferr := failures[id]
			if !errors.Is(ferr, ErrMissingOAMID) {
				// entities without an OAM id have no sprite at all; everything
				// else is worth reporting:
				fmt.Printf("  %s: SKIP (%v)\n", id, ferr)
			}
			skipped++
			continue
		}

		name := filepath.Join(outDir, fmt.Sprintf("%02X.png", i))
		if err = exportPNG(name, scaleNearest(ex.Image, scale)); err != nil {
			panic(err)
		}

		hpStr := strconv.Itoa(int(ex.Frame.HitPoints))
		if ex.Frame.HitPoints == 0xFF {
			hpStr = "INV"
		}
		mapped := "heuristic"
		if ex.Mapped {
			mapped = "room"
		}
		fmt.Printf("  %s: OAM=$%02X main=$%02X HP=%s sprites=%d CHR=%s p$%02X (%s) -> %s\n",
			id, ex.Frame.OAMID, ex.Frame.MainRoutine, hpStr, len(ex.Frame.Parts),
			mm3.stageName(ex.Config.Stage), ex.Config.Param, mapped, name)

		sheetEntries = append(sheetEntries, ex)
		extracted++
	}

	if drawSheet && len(sheetEntries) > 0 {
		name := filepath.Join(outDir, "sheet.png")
		if err = renderSheet(name, sheetEntries); err != nil {
			panic(err)
		}
		fmt.Printf("sheet -> %s\n", name)
	}

	fmt.Printf("\ndone: %d sprites extracted, %d skipped\n", extracted, skipped)
}
