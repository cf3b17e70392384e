package main

// CHRRegs are the six graphics window selectors: two 2K windows (consecutive
// 1K page pairs) followed by four 1K windows.
type CHRRegs [6]uint8

// CHRConfig is one hypothesis about the banking live when an entity is on
// screen: the window selectors plus the CHR/palette parameter that produced
// them, and the stage the hypothesis came from (-1 for the parameter sweep).
type CHRConfig struct {
	Stage int
	Param uint8
	Regs  CHRRegs
}

// chrParam reads the two switchable sprite window selectors for a parameter.
func (r *ROM) chrParam(param uint8) (uint8, uint8) {
	m := r.m
	off, _ := r.prgOffset(m.ConfigBank, m.ChrParamTable+uint16(param)*2)
	return read8(r.data, off), read8(r.data, off+1)
}

// buildEntityCHRMap scans every stage's room and placement tables and
// returns, per entity, the CHR configuration implied by each placement. The
// correct banking for an entity depends on which room placed it and is not
// recorded anywhere as a single value, so placements are the primary
// evidence.
func (r *ROM) buildEntityCHRMap() map[EntityID][]CHRConfig {
	m := r.m
	configs := make(map[EntityID][]CHRConfig, m.EntityCount)

	for stage := 0; stage < m.StageCount; stage++ {
		bank := r.readPrg(m.FixedBank, m.StageBankTable+uint16(stage))
		if uint32(bank) >= m.PrgBanks {
			continue
		}

		// background windows are fixed for the whole stage:
		bg0 := r.readPrg(bank, m.BgPageTable)
		bg1 := r.readPrg(bank, m.BgPageTable+1)

		// expand the room list into a screen -> parameter mapping; each room
		// claims the next (count+1) consecutive screen indices:
		screenParam := make(map[uint8]uint8, m.RoomCount)
		screen := 0
		for room := 0; room < m.RoomCount; room++ {
			param := r.readPrg(bank, m.RoomParamTable+uint16(room)*2)
			if param >= m.ParamSentinel {
				break
			}
			n := int(r.readPrg(bank, m.RoomConfigTable+uint16(room))&0x1F) + 1
			for s := 0; s < n; s++ {
				screenParam[uint8(screen+s)] = param
			}
			screen += n
		}

		// scan the stage's placement table: parallel screen/entity arrays
		// terminated by a sentinel pair:
		for i := 0; i < m.PlacementMax; i++ {
			scr := r.readPrg(bank, m.PlacementScreens+uint16(i))
			ent := r.readPrg(bank, m.PlacementEntities+uint16(i))
			if scr == m.PlacementSentinel && ent == m.PlacementSentinel {
				break
			}
			if int(ent) >= m.EntityCount {
				continue
			}
			param, ok := screenParam[scr]
			if !ok {
				// unmapped screen: fall back to the stage's own index
				param = uint8(stage)
			}
			sp0, sp1 := r.chrParam(param)
			id := EntityID(ent)
			configs[id] = append(configs[id], CHRConfig{
				Stage: stage,
				Param: param,
				Regs:  CHRRegs{bg0, bg1, m.SharedPages[0], m.SharedPages[1], sp0, sp1},
			})
		}
	}

	return configs
}

// configsForEntity orders the candidate CHR configurations for one entity.
// Never empty for a valid entity id: entities with no static placement fall
// back to sweeping every defined parameter.
//
// Placements are bucketed by stage tier and only the earliest non-empty tier
// is kept: bosses reappearing in later fortress stages are placed there under
// a transitional banking that precedes an in-level graphics swap, so early
// occurrences are the trustworthy ones.
func (r *ROM) configsForEntity(id EntityID, placed map[EntityID][]CHRConfig) []CHRConfig {
	m := r.m

	if found := placed[id]; len(found) > 0 {
		if !r.usesStageTiles(id) {
			// only shared tiles: every placement renders identically
			return found[:1:1]
		}

		tier := func(lo, hi int) (b []CHRConfig) {
			for _, c := range found {
				if c.Stage >= lo && c.Stage < hi {
					b = append(b, c)
				}
			}
			return
		}
		bucket := tier(0, m.PrimaryStages)
		if len(bucket) == 0 {
			bucket = tier(m.PrimaryStages, m.SecondaryStages)
		}
		if len(bucket) == 0 {
			bucket = tier(m.SecondaryStages, m.StageCount)
		}
		return dedupeConfigs(bucket)
	}

	// never placed (dynamically spawned sub-object): sweep every defined
	// parameter with blank background windows:
	sweep := make([]CHRConfig, 0, m.ParamCount)
	for p := 0; p < m.ParamCount; p++ {
		sp0, sp1 := r.chrParam(uint8(p))
		sweep = append(sweep, CHRConfig{
			Stage: -1,
			Param: uint8(p),
			Regs:  CHRRegs{0, 0, m.SharedPages[0], m.SharedPages[1], sp0, sp1},
		})
	}
	return dedupeConfigs(sweep)
}

// dedupeConfigs drops configs whose switchable sprite windows repeat an
// earlier candidate; order is otherwise preserved.
func dedupeConfigs(in []CHRConfig) []CHRConfig {
	seen := make(map[[2]uint8]bool, len(in))
	out := make([]CHRConfig, 0, len(in))
	for _, c := range in {
		key := [2]uint8{c.Regs[4], c.Regs[5]}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}
