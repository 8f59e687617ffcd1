package utils

import "fmt"

// All monetary amounts in the system are int64 paisa (1 taka = 100 paisa).

func PaisaToTaka(paisa int64) float64 {
	return float64(paisa) / 100.0
}

func TakaToPaisa(taka float64) int64 {
	return int64(taka*100 + 0.5)
}

func FormatTaka(paisa int64) string {
	return fmt.Sprintf("৳%.2f", PaisaToTaka(paisa))
}

// TaxFor computes the tax in paisa on a discounted subtotal using the
// configured percent rate, rounding down.
func TaxFor(amount int64, ratePercent int) int64 {
	if amount <= 0 || ratePercent <= 0 {
		return 0
	}
	return amount * int64(ratePercent) / 100
}
