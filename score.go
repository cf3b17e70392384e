package main

import (
	"fmt"
	"image"
)

// discardScore sorts below every achievable score; a successful rendering has
// at least one opaque pixel and therefore scores >= 1.
const discardScore float64 = -1

// Extraction is the winning rendering for one entity.
type Extraction struct {
	Entity EntityID
	Image  *image.NRGBA
	Frame  *SpriteFrame
	Config CHRConfig
	Score  float64
	Mapped bool // placement-derived config, not the parameter sweep
}

// scoreSprite ranks a rendering by how spatially connected its opaque pixels
// are. Correct bank hypotheses decode tiles that cohere into connected
// shapes; wrong ones read unrelated data and scatter. Only right and down
// neighbors are counted so no pair is counted twice; the opaque count breaks
// ties toward more visible content.
func scoreSprite(g *image.NRGBA) float64 {
	b := g.Bounds()
	opaque, connections := 0, 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if g.NRGBAAt(x, y).A == 0 {
				continue
			}
			opaque++
			if x+1 < b.Max.X && g.NRGBAAt(x+1, y).A > 0 {
				connections++
			}
			if y+1 < b.Max.Y && g.NRGBAAt(x, y+1).A > 0 {
				connections++
			}
		}
	}
	if opaque == 0 {
		return discardScore
	}
	return float64(connections)/float64(opaque)*1000 + float64(opaque)
}

// extractEntity runs the full pipeline for one entity: resolve the frame,
// generate CHR hypotheses, render and score each, keep the argmax. Ties go
// to the first candidate seen, which the tier ordering already ranks.
func (r *ROM) extractEntity(id EntityID, placed map[EntityID][]CHRConfig) (*Extraction, error) {
	// the pointer chain is independent of banking; resolve once. A failure
	// here, including the entity-fatal missing OAM id, cannot be recovered by
	// any hypothesis:
	frame, err := r.resolveEntity(id)
	if err != nil {
		return nil, err
	}

	candidates := r.configsForEntity(id, placed)

	best := &Extraction{Entity: id, Score: discardScore}
	var firstErr error
	for _, cfg := range candidates {
		g, err := r.composeSprite(frame, cfg.Regs, r.buildParamPalettes(cfg.Param))
		if err != nil {
			// local to this hypothesis; try the rest
			if firstErr == nil {
				firstErr = fmt.Errorf("stage %d param $%02X: %w", cfg.Stage, cfg.Param, err)
			}
			continue
		}
		if score := scoreSprite(g); score > best.Score {
			best.Score = score
			best.Image = g
			best.Frame = frame
			best.Config = cfg
			best.Mapped = len(placed[id]) > 0
		}
	}

	if best.Image == nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("entity %s: no coherent configuration", id)
		}
		return nil, firstErr
	}
	return best, nil
}
