package pipeline

import (
	"regexp"
	"strings"

	"slipscan/internal"
	"slipscan/internal/util"
)

var (
	rePriceToken    = regexp.MustCompile(`^(?:[¥￥$＄]\s*[0-9０-９][0-9０-９,，.]*|[0-9０-９][0-9０-９,，.]*\s*円)$`)
	reFractionToken = regexp.MustCompile(`^\d+/\d+$`)
	reNumberSuffix  = regexp.MustCompile(`^\d+(?:\.\d+)?[^0-9\s]+$`)
)

// ItemParts is an item line cut into name, quantity text, unit text and an
// optional trailing amount. Quantity and unit are still unparsed.
type ItemParts struct {
	Name     string
	Quantity string
	Unit     string
	Price    *float64
}

// DecomposeItem pulls the trailing quantity (and unit) off an item line.
// Price tokens at the end of the line are removed first; the rightmost one is
// kept as the line amount.
func DecomposeItem(raw string) ItemParts {
	compact := util.NormalizeSpaces(raw)
	tokens := strings.Fields(compact)
	parts := ItemParts{Name: compact}

	for len(tokens) > 1 && rePriceToken.MatchString(tokens[len(tokens)-1]) {
		if parts.Price == nil {
			if v, ok := util.ParsePrice(tokens[len(tokens)-1]); ok {
				parts.Price = util.FloatPtr(v)
			}
		}
		tokens = tokens[:len(tokens)-1]
	}

	n := len(tokens)
	if n < 2 {
		parts.Name = strings.Join(tokens, " ")
		return parts
	}

	last := tokens[n-1]
	folded := util.FoldWidth(last)
	switch {
	case util.IsBareNumber(folded), reFractionToken.MatchString(folded), reNumberSuffix.MatchString(folded):
		parts.Name = strings.Join(tokens[:n-1], " ")
		parts.Quantity = last
	case n >= 3 && util.IsBareNumber(util.FoldWidth(tokens[n-2])):
		parts.Name = strings.Join(tokens[:n-2], " ")
		parts.Quantity = tokens[n-2]
		parts.Unit = last
	default:
		parts.Name = strings.Join(tokens, " ")
	}
	return parts
}

// EnrichItem fills name, quantity and unit of an item from its raw line.
// Items without a quantity keep a zero QuantityUnit.
func EnrichItem(units *util.UnitTable, item internal.Item) internal.Item {
	parts := DecomposeItem(item.Raw)
	out := item
	out.Name = parts.Name
	out.Price = parts.Price
	out.Qty = internal.QuantityUnit{}
	if parts.Quantity != "" {
		out.Qty = NormalizeQuantity(units, parts.Quantity, parts.Unit)
	}
	return out
}

// NormalizeQuantity is the quantity pipeline for one pair: parse, then
// canonicalize the unit.
func NormalizeQuantity(units *util.UnitTable, quantity, unit string) internal.QuantityUnit {
	q := util.ParseQuantity(quantity, unit)
	if units == nil {
		return q
	}
	return units.Apply(q)
}
