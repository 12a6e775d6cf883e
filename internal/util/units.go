package util

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"slipscan/internal"
)

type UnitAlias struct {
	Canonical string  `yaml:"canonical"`
	Scale     float64 `yaml:"scale"`
}

// UnitTable maps raw unit spellings to a canonical unit and a scale factor.
// Lookups are exact and case-sensitive; nothing outside the table is inferred.
type UnitTable struct {
	aliases map[string]UnitAlias
}

var defaultUnitAliases = map[string]UnitAlias{
	"cc":     {Canonical: "ml", Scale: 1},
	"CC":     {Canonical: "ml", Scale: 1},
	"mL":     {Canonical: "ml", Scale: 1},
	"ML":     {Canonical: "ml", Scale: 1},
	"ミリリットル": {Canonical: "ml", Scale: 1},
	"l":      {Canonical: "ml", Scale: 1000},
	"L":      {Canonical: "ml", Scale: 1000},
	"ℓ":      {Canonical: "ml", Scale: 1000},
	"リットル":   {Canonical: "ml", Scale: 1000},
}

func DefaultUnitTable() *UnitTable {
	t := &UnitTable{aliases: make(map[string]UnitAlias, len(defaultUnitAliases))}
	for raw, alias := range defaultUnitAliases {
		t.aliases[raw] = alias
	}
	return t
}

// LoadUnitTable returns the default table extended with the aliases listed in
// a YAML file:
//
//	aliases:
//	  合: {canonical: ml, scale: 180}
func LoadUnitTable(path string) (*UnitTable, error) {
	t := DefaultUnitTable()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read unit aliases: %w", err)
	}
	var file struct {
		Aliases map[string]UnitAlias `yaml:"aliases"`
	}
	if err := yaml.Unmarshal(blob, &file); err != nil {
		return nil, fmt.Errorf("parse unit aliases %s: %w", path, err)
	}

	raws := make([]string, 0, len(file.Aliases))
	for raw := range file.Aliases {
		raws = append(raws, raw)
	}
	sort.Strings(raws)
	for _, raw := range raws {
		alias := file.Aliases[raw]
		if err := t.Add(raw, alias.Canonical, alias.Scale); err != nil {
			return nil, fmt.Errorf("unit alias %q: %w", raw, err)
		}
	}
	return t, nil
}

// Add registers one alias. A zero scale means 1. Canonical units may not be
// aliases themselves, which keeps Apply a fixed point.
func (t *UnitTable) Add(raw, canonical string, scale float64) error {
	if raw == "" || canonical == "" {
		return fmt.Errorf("alias and canonical unit are required")
	}
	if scale == 0 {
		scale = 1
	}
	if scale < 0 {
		return fmt.Errorf("negative scale %v", scale)
	}
	if raw == canonical {
		return fmt.Errorf("alias maps onto itself")
	}
	if _, ok := t.aliases[canonical]; ok {
		return fmt.Errorf("canonical unit %q is itself an alias", canonical)
	}
	for _, existing := range t.aliases {
		if existing.Canonical == raw {
			return fmt.Errorf("%q is already a canonical unit", raw)
		}
	}
	t.aliases[raw] = UnitAlias{Canonical: canonical, Scale: scale}
	return nil
}

func (t *UnitTable) Lookup(unit string) (UnitAlias, bool) {
	alias, ok := t.aliases[unit]
	if !ok {
		return UnitAlias{}, false
	}
	if alias.Scale == 0 {
		alias.Scale = 1
	}
	return alias, true
}

// Apply rewrites the unit to its canonical form and rescales a numeric
// quantity. Non-numeric quantities keep their text; only the label changes.
func (t *UnitTable) Apply(q internal.QuantityUnit) internal.QuantityUnit {
	alias, ok := t.Lookup(q.Unit)
	if !ok {
		return q
	}
	out := q
	out.Unit = alias.Canonical
	if q.Quantity != nil && alias.Scale != 1 {
		scaled, _ := decimal.NewFromFloat(*q.Quantity).Mul(decimal.NewFromFloat(alias.Scale)).Float64()
		out.Quantity = FloatPtr(scaled)
	}
	return out
}

func (t *UnitTable) Len() int {
	return len(t.aliases)
}
