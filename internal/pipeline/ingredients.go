package pipeline

import (
	"slipscan/internal"
	"slipscan/internal/util"
)

// NormalizeIngredient runs one ingredient through the quantity pipeline and
// reports whether the stored form would change. Running it again on After
// reports no change.
func NormalizeIngredient(units *util.UnitTable, ing internal.Ingredient) internal.IngredientChange {
	parsed := NormalizeQuantity(units, ing.Quantity, ing.Unit)
	after := ing
	after.Quantity = parsed.Text()
	after.Unit = parsed.Unit
	return internal.IngredientChange{
		Before:  ing,
		After:   after,
		Parsed:  parsed,
		Changed: after != ing,
	}
}

func NormalizeIngredients(units *util.UnitTable, list []internal.Ingredient) []internal.IngredientChange {
	out := make([]internal.IngredientChange, 0, len(list))
	for _, ing := range list {
		out = append(out, NormalizeIngredient(units, ing))
	}
	return out
}

func CountChanged(changes []internal.IngredientChange) int {
	n := 0
	for _, c := range changes {
		if c.Changed {
			n++
		}
	}
	return n
}
