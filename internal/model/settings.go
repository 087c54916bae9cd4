package model

// IndicatorPreset names a built-in weight/gate preset.
type IndicatorPreset string

const (
	PresetConservative IndicatorPreset = "conservative"
	PresetBalanced     IndicatorPreset = "balanced"
	PresetAggressive   IndicatorPreset = "aggressive"
	PresetCustom       IndicatorPreset = "custom"
)

// ComponentWeights is the six-component weight vector of the confidence
// scorer. Weights need not sum to 1; they are normalized at use time.
type ComponentWeights struct {
	RSI         float64 `json:"rsi"`
	MACD        float64 `json:"macd"`
	Bollinger   float64 `json:"bollinger"`
	EMA         float64 `json:"ema"`
	Volume      float64 `json:"volume"`
	PriceAction float64 `json:"price_action"`
}

// ComponentFlags enables or disables individual scorer components.
type ComponentFlags struct {
	RSI         bool `json:"rsi"`
	MACD        bool `json:"macd"`
	Bollinger   bool `json:"bollinger"`
	EMA         bool `json:"ema"`
	Volume      bool `json:"volume"`
	PriceAction bool `json:"price_action"`
}

// IndicatorSettings is one user's indicator/scorer configuration.
// Created lazily with defaults on first access; one row per user.
type IndicatorSettings struct {
	UserID  string           `json:"user_id"`
	Preset  IndicatorPreset  `json:"preset"`
	Weights ComponentWeights `json:"weights"`
	Enabled ComponentFlags   `json:"enabled"`

	// Minimum blended confidence required before an automated entry.
	MinConfidence float64 `json:"min_confidence"`

	// Tunable periods.
	MACDFast     int     `json:"macd_fast"`
	MACDSlow     int     `json:"macd_slow"`
	MACDSignal   int     `json:"macd_signal"`
	BollPeriod   int     `json:"boll_period"`
	BollStdDev   float64 `json:"boll_std_dev"`
	EMAFast      int     `json:"ema_fast"`
	EMASlow      int     `json:"ema_slow"`
	VolumePeriod int     `json:"volume_period"`
}

// DefaultIndicatorSettings returns the balanced defaults for a user.
func DefaultIndicatorSettings(userID string) IndicatorSettings {
	s := IndicatorSettings{
		UserID: userID,
		Enabled: ComponentFlags{
			RSI: true, MACD: true, Bollinger: true,
			EMA: true, Volume: true, PriceAction: true,
		},
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
		BollPeriod:   20,
		BollStdDev:   2,
		EMAFast:      9,
		EMASlow:      21,
		VolumePeriod: 20,
	}
	s.ApplyPreset(PresetBalanced)
	return s
}

// ApplyPreset bulk-sets the weight vector and confidence gate for a named
// preset. It is a convenience setter, not a constraint: users may edit
// individual fields away from the preset afterwards. Custom leaves the
// current values untouched.
func (s *IndicatorSettings) ApplyPreset(p IndicatorPreset) {
	switch p {
	case PresetConservative:
		s.Weights = ComponentWeights{RSI: 0.25, MACD: 0.20, Bollinger: 0.20, EMA: 0.15, Volume: 0.10, PriceAction: 0.10}
		s.MinConfidence = 0.75
	case PresetBalanced:
		s.Weights = ComponentWeights{RSI: 0.20, MACD: 0.20, Bollinger: 0.15, EMA: 0.15, Volume: 0.15, PriceAction: 0.15}
		s.MinConfidence = 0.60
	case PresetAggressive:
		s.Weights = ComponentWeights{RSI: 0.15, MACD: 0.25, Bollinger: 0.10, EMA: 0.20, Volume: 0.15, PriceAction: 0.15}
		s.MinConfidence = 0.45
	case PresetCustom:
		// user-controlled, nothing to set
	}
	s.Preset = p
}

// FeaturePreset names a bulk-setter for the advanced signal toggles.
type FeaturePreset string

const (
	FeatureBasic        FeaturePreset = "basic"
	FeatureIntermediate FeaturePreset = "intermediate"
	FeaturePro          FeaturePreset = "pro"
)

// AdvancedSignalSettings is one user's toggles for the advanced detectors
// in the signal path, plus their numeric parameters.
type AdvancedSignalSettings struct {
	UserID        string        `json:"user_id"`
	FeatureSet    FeaturePreset `json:"feature_preset"`
	MultiTF       bool          `json:"multi_tf"`
	VWAPEntry     bool          `json:"vwap_entry"`
	ATRStops      bool          `json:"atr_stops"`
	BTCDumpFilter bool          `json:"btc_dump_filter"`
	LiqSweep      bool          `json:"liquidity_sweep"`

	BTCDumpThresholdPct float64 `json:"btc_dump_threshold_pct"` // 15m drop that blocks entries
	ATRStopMultiplier   float64 `json:"atr_stop_multiplier"`
	SweepWickRatio      float64 `json:"sweep_wick_ratio"`
	SweepVolumeMult     float64 `json:"sweep_volume_mult"`
}

// DefaultAdvancedSignalSettings returns the basic-tier defaults.
func DefaultAdvancedSignalSettings(userID string) AdvancedSignalSettings {
	s := AdvancedSignalSettings{
		UserID:              userID,
		BTCDumpThresholdPct: 2.0,
		ATRStopMultiplier:   1.5,
		SweepWickRatio:      1.5,
		SweepVolumeMult:     2.0,
	}
	s.ApplyFeaturePreset(FeatureBasic)
	return s
}

// ApplyFeaturePreset bulk-sets the toggles for a tier. Like the indicator
// presets it is not authoritative: individual toggles may be changed after.
func (s *AdvancedSignalSettings) ApplyFeaturePreset(p FeaturePreset) {
	switch p {
	case FeatureBasic:
		s.MultiTF = false
		s.VWAPEntry = false
		s.ATRStops = false
		s.BTCDumpFilter = true
		s.LiqSweep = false
	case FeatureIntermediate:
		s.MultiTF = true
		s.VWAPEntry = false
		s.ATRStops = true
		s.BTCDumpFilter = true
		s.LiqSweep = false
	case FeaturePro:
		s.MultiTF = true
		s.VWAPEntry = true
		s.ATRStops = true
		s.BTCDumpFilter = true
		s.LiqSweep = true
	}
	s.FeatureSet = p
}
