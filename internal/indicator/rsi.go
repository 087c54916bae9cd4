package indicator

// DefaultRSIPeriod is the conventional RSI lookback.
const DefaultRSIPeriod = 14

// RSI computes the Relative Strength Index over closes using Wilder's
// smoothing. Bounded in [0, 100] for any finite input.
//
// Neutral defaults: returns 50 when fewer than period+1 closes are
// available, and exactly 100 when the average loss is zero.
func RSI(closes []float64, period int) float64 {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	if len(closes) < period+1 {
		return 50
	}

	avgGain, avgLoss := wilderAverages(closes, period)
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// RSISeries returns an RSI value for every close, aligned to the input.
// Positions with insufficient history hold the neutral 50. The divergence
// and liquidity-sweep detectors consume this form.
func RSISeries(closes []float64, period int) []float64 {
	if period <= 0 {
		period = DefaultRSIPeriod
	}
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = 50
	}
	if len(closes) < period+1 {
		return out
	}

	// Seed averages from the first period deltas.
	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFrom(avgGain, avgLoss)

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
		out[i] = rsiFrom(avgGain, avgLoss)
	}
	return out
}

// wilderAverages computes the final Wilder-smoothed average gain/loss
// over the whole series.
func wilderAverages(closes []float64, period int) (avgGain, avgLoss float64) {
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			avgGain += delta
		} else {
			avgLoss -= delta
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	p := float64(period)
	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if delta > 0 {
			gain = delta
		} else {
			loss = -delta
		}
		avgGain = (avgGain*(p-1) + gain) / p
		avgLoss = (avgLoss*(p-1) + loss) / p
	}
	return avgGain, avgLoss
}

func rsiFrom(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}
