package signal

import (
	"context"
	"testing"

	"tradecore/internal/model"
)

// fakeSettingsStore mimics the sqlite store's lazy-default reads.
type fakeSettingsStore struct {
	indicator map[string]model.IndicatorSettings
	advanced  map[string]model.AdvancedSignalSettings
}

func newFakeSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{
		indicator: make(map[string]model.IndicatorSettings),
		advanced:  make(map[string]model.AdvancedSignalSettings),
	}
}

func (f *fakeSettingsStore) GetIndicatorSettings(ctx context.Context, userID string) (model.IndicatorSettings, error) {
	if s, ok := f.indicator[userID]; ok {
		return s, nil
	}
	s := model.DefaultIndicatorSettings(userID)
	f.indicator[userID] = s
	return s, nil
}

func (f *fakeSettingsStore) SaveIndicatorSettings(ctx context.Context, s model.IndicatorSettings) error {
	f.indicator[s.UserID] = s
	return nil
}

func (f *fakeSettingsStore) GetAdvancedSettings(ctx context.Context, userID string) (model.AdvancedSignalSettings, error) {
	if s, ok := f.advanced[userID]; ok {
		return s, nil
	}
	s := model.DefaultAdvancedSignalSettings(userID)
	f.advanced[userID] = s
	return s, nil
}

func (f *fakeSettingsStore) SaveAdvancedSettings(ctx context.Context, s model.AdvancedSignalSettings) error {
	f.advanced[s.UserID] = s
	return nil
}

func TestSettingsServicePresetRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := NewSettingsService(newFakeSettingsStore())

	got, err := svc.Indicator(ctx, "u1")
	if err != nil {
		t.Fatalf("indicator: %v", err)
	}
	if got.Preset != model.PresetBalanced {
		t.Fatalf("first read preset = %q, want balanced", got.Preset)
	}

	applied, err := svc.ApplyPreset(ctx, "u1", model.PresetConservative)
	if err != nil {
		t.Fatalf("apply preset: %v", err)
	}
	if applied.MinConfidence != 0.75 {
		t.Fatalf("conservative gate = %v", applied.MinConfidence)
	}

	reread, _ := svc.Indicator(ctx, "u1")
	if reread.Preset != model.PresetConservative || reread.Weights.RSI != 0.25 {
		t.Fatalf("preset not persisted: %+v", reread)
	}
}

func TestSettingsServiceRejectsUnknownPreset(t *testing.T) {
	svc := NewSettingsService(newFakeSettingsStore())
	if _, err := svc.ApplyPreset(context.Background(), "u1", "yolo"); err == nil {
		t.Fatal("expected error for unknown preset")
	}
}

func TestSaveIndicatorValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewSettingsService(newFakeSettingsStore())

	s := model.DefaultIndicatorSettings("u1")
	s.MinConfidence = 1.3
	if err := svc.SaveIndicator(ctx, s); err == nil {
		t.Fatal("expected error for out-of-range gate")
	}

	s = model.DefaultIndicatorSettings("u1")
	s.MACDFast, s.MACDSlow = 26, 12
	if err := svc.SaveIndicator(ctx, s); err == nil {
		t.Fatal("expected error for inverted MACD periods")
	}

	s = model.DefaultIndicatorSettings("u1")
	s.Preset = ""
	s.Weights.Volume = 0.5
	if err := svc.SaveIndicator(ctx, s); err != nil {
		t.Fatalf("valid save: %v", err)
	}
	got, _ := svc.Indicator(ctx, "u1")
	if got.Preset != model.PresetCustom {
		t.Fatalf("manual edit should land as custom, got %q", got.Preset)
	}
}

func TestFeaturePresetTiers(t *testing.T) {
	ctx := context.Background()
	svc := NewSettingsService(newFakeSettingsStore())

	got, err := svc.Advanced(ctx, "u1")
	if err != nil {
		t.Fatalf("advanced: %v", err)
	}
	if got.FeatureSet != model.FeatureBasic || !got.BTCDumpFilter || got.MultiTF {
		t.Fatalf("basic defaults wrong: %+v", got)
	}

	pro, err := svc.ApplyFeaturePreset(ctx, "u1", model.FeaturePro)
	if err != nil {
		t.Fatalf("apply pro: %v", err)
	}
	if !pro.MultiTF || !pro.VWAPEntry || !pro.ATRStops || !pro.LiqSweep {
		t.Fatalf("pro tier should enable all detectors: %+v", pro)
	}

	if _, err := svc.ApplyFeaturePreset(ctx, "u1", "ultra"); err == nil {
		t.Fatal("expected error for unknown tier")
	}
}
