package indicator

import (
	"math"

	"tradecore/internal/model"
)

// ADXResult is the outcome of a directional movement computation.
type ADXResult struct {
	ADX        float64
	PlusDI     float64
	MinusDI    float64
	Sufficient bool
}

// ADX computes the Average Directional Index and ±DI over candles using
// Wilder smoothing. Zero period falls back to the conventional 14.
//
// Neutral defaults: with fewer than 2·period+1 candles the result is
// {ADX: 25, PlusDI: 50, MinusDI: 50} rather than an error.
func ADX(candles []model.Candle, period int) ADXResult {
	if period <= 0 {
		period = 14
	}
	if len(candles) < 2*period+1 {
		return ADXResult{ADX: 25, PlusDI: 50, MinusDI: 50}
	}

	n := len(candles) - 1
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)
	trs := make([]float64, n)
	for i := 1; i < len(candles); i++ {
		c, prev := candles[i], candles[i-1]
		upMove := c.High - prev.High
		downMove := prev.Low - c.Low
		if upMove > downMove && upMove > 0 {
			plusDM[i-1] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i-1] = downMove
		}
		trs[i-1] = math.Max(c.High-c.Low, math.Max(math.Abs(c.High-prev.Close), math.Abs(c.Low-prev.Close)))
	}

	// Wilder-smoothed running sums, seeded by the first period entries.
	smPlus := sum(plusDM[:period])
	smMinus := sum(minusDM[:period])
	smTR := sum(trs[:period])

	dxs := make([]float64, 0, n-period+1)
	appendDX := func() {
		if smTR == 0 {
			return
		}
		pdi := 100 * smPlus / smTR
		mdi := 100 * smMinus / smTR
		if pdi+mdi > 0 {
			dxs = append(dxs, 100*math.Abs(pdi-mdi)/(pdi+mdi))
		} else {
			dxs = append(dxs, 0)
		}
	}
	appendDX()

	p := float64(period)
	for i := period; i < n; i++ {
		smPlus = smPlus - smPlus/p + plusDM[i]
		smMinus = smMinus - smMinus/p + minusDM[i]
		smTR = smTR - smTR/p + trs[i]
		appendDX()
	}

	res := ADXResult{Sufficient: true}
	if smTR > 0 {
		res.PlusDI = 100 * smPlus / smTR
		res.MinusDI = 100 * smMinus / smTR
	}
	if len(dxs) >= period {
		// ADX is the Wilder-smoothed DX: seed with the first period DXs.
		adx := sum(dxs[:period]) / p
		for i := period; i < len(dxs); i++ {
			adx = (adx*(p-1) + dxs[i]) / p
		}
		res.ADX = adx
	}
	return res
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}
