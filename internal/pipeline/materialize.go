package pipeline

import (
	"slipscan/internal"
	"slipscan/internal/util"
)

// Materialize flattens the scan result into the output slip list, slips in
// first-seen order. The returned slips share nothing with the set.
func Materialize(set *SlipSet) []internal.Slip {
	if set == nil {
		return []internal.Slip{}
	}
	out := make([]internal.Slip, 0, set.Len())
	for _, slipNo := range set.order {
		slip := set.slips[slipNo]
		items := make([]internal.Item, len(slip.Items))
		for i, item := range slip.Items {
			if item.Qty.Quantity != nil {
				item.Qty.Quantity = util.FloatPtr(*item.Qty.Quantity)
			}
			if item.Price != nil {
				item.Price = util.FloatPtr(*item.Price)
			}
			items[i] = item
		}

		var vendor *string
		if slip.Vendor != nil {
			vendor = util.StringPtr(*slip.Vendor)
		}
		out = append(out, internal.Slip{SlipNo: slip.SlipNo, Vendor: vendor, Items: items})
	}
	return out
}
