// Package tax реализует ежемесячный налог на активы.
// tax.go — чистая функция налога по сумме активов.
package tax

import "math"

// Параметры кривой налога (в лофанах).
const (
	taxCeiling = 1_000_000.0
	taxDecay   = 0.999
	taxScale   = 0.9 / 1000
)

// Tax возвращает налог в центило для активов в центило.
//
// Кривая насыщается: малые суммы почти не облагаются,
// большие облагаются почти целиком сверх постоянного вычета.
//
//	x = assets / 100
//	t = (x − 1e6·(1 − 0.999^(0.9·x/1000))) · 100
func Tax(assets int64) int64 {
	x := float64(assets) / 100
	if x <= 0 {
		return 0
	}
	t := (x - taxCeiling*(1-math.Pow(taxDecay, taxScale*x))) * 100
	if t <= 0 {
		return 0
	}
	return int64(math.Round(t))
}
