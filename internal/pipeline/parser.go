package pipeline

import (
	"strings"

	"slipscan/internal"
	"slipscan/internal/util"
)

// SlipParser runs the slip pipeline: normalize, scan, enrich items,
// materialize. It holds no per-document state and is safe for concurrent use.
type SlipParser struct {
	Normalizer LineNormalizer
	Units      *util.UnitTable
}

func NewSlipParser(normalizer LineNormalizer, units *util.UnitTable) *SlipParser {
	if units == nil {
		units = util.DefaultUnitTable()
	}
	return &SlipParser{Normalizer: normalizer, Units: units}
}

// Parse returns ErrEmptyInput when raw holds no text at all. A document made
// only of page furniture yields no slips and no error.
func (p *SlipParser) Parse(raw []string) ([]internal.Slip, error) {
	if !hasContent(raw) {
		return nil, ErrEmptyInput
	}

	lines := p.Normalizer.Normalize(raw)
	if len(lines) == 0 {
		return []internal.Slip{}, nil
	}

	set, err := ScanSlips(lines)
	if err != nil {
		return nil, err
	}
	for _, slipNo := range set.order {
		slip := set.slips[slipNo]
		for i := range slip.Items {
			slip.Items[i] = EnrichItem(p.Units, slip.Items[i])
		}
	}
	return Materialize(set), nil
}

func (p *SlipParser) ParseText(block string) ([]internal.Slip, error) {
	return p.Parse(SplitBlock(block))
}

func hasContent(raw []string) bool {
	for _, line := range raw {
		if strings.TrimSpace(util.StripControl(line)) != "" {
			return true
		}
	}
	return false
}
