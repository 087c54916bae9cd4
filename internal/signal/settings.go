package signal

import (
	"context"
	"fmt"

	"tradecore/internal/model"
)

// SettingsService is the read/write front for per-user scorer and
// detector settings. The store lazily creates default rows on first
// read; the service adds validation and the preset bulk-setters.
type SettingsService struct {
	store model.SettingsStore
}

// NewSettingsService creates the service.
func NewSettingsService(store model.SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

// Indicator returns the user's indicator settings.
func (s *SettingsService) Indicator(ctx context.Context, userID string) (model.IndicatorSettings, error) {
	return s.store.GetIndicatorSettings(ctx, userID)
}

// SaveIndicator validates and persists edited settings. Any manual edit
// moves the row to the custom preset unless it matches a named one.
func (s *SettingsService) SaveIndicator(ctx context.Context, settings model.IndicatorSettings) error {
	if settings.UserID == "" {
		return fmt.Errorf("indicator settings without user id")
	}
	if settings.MinConfidence < 0 || settings.MinConfidence > 1 {
		return fmt.Errorf("min confidence %v out of [0,1]", settings.MinConfidence)
	}
	if settings.MACDFast >= settings.MACDSlow {
		return fmt.Errorf("macd fast period %d must be below slow %d", settings.MACDFast, settings.MACDSlow)
	}
	if settings.Preset == "" {
		settings.Preset = model.PresetCustom
	}
	return s.store.SaveIndicatorSettings(ctx, settings)
}

// ApplyPreset bulk-sets the weight vector and gate for the user and
// persists the result.
func (s *SettingsService) ApplyPreset(ctx context.Context, userID string, preset model.IndicatorPreset) (model.IndicatorSettings, error) {
	switch preset {
	case model.PresetConservative, model.PresetBalanced, model.PresetAggressive, model.PresetCustom:
	default:
		return model.IndicatorSettings{}, fmt.Errorf("unknown preset %q", preset)
	}
	settings, err := s.Indicator(ctx, userID)
	if err != nil {
		return model.IndicatorSettings{}, err
	}
	settings.ApplyPreset(preset)
	if err := s.store.SaveIndicatorSettings(ctx, settings); err != nil {
		return model.IndicatorSettings{}, err
	}
	return settings, nil
}

// Advanced returns the user's advanced-signal settings.
func (s *SettingsService) Advanced(ctx context.Context, userID string) (model.AdvancedSignalSettings, error) {
	return s.store.GetAdvancedSettings(ctx, userID)
}

// ApplyFeaturePreset bulk-sets the detector toggles for a tier and
// persists the result.
func (s *SettingsService) ApplyFeaturePreset(ctx context.Context, userID string, preset model.FeaturePreset) (model.AdvancedSignalSettings, error) {
	switch preset {
	case model.FeatureBasic, model.FeatureIntermediate, model.FeaturePro:
	default:
		return model.AdvancedSignalSettings{}, fmt.Errorf("unknown feature preset %q", preset)
	}
	settings, err := s.Advanced(ctx, userID)
	if err != nil {
		return model.AdvancedSignalSettings{}, err
	}
	settings.ApplyFeaturePreset(preset)
	if err := s.store.SaveAdvancedSettings(ctx, settings); err != nil {
		return model.AdvancedSignalSettings{}, err
	}
	return settings, nil
}
