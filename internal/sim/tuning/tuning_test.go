package tuning

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyDefaults(t *testing.T) {
	var tn Tuning
	tn.ApplyDefaults()
	if tn.TickRateHz != 20 {
		t.Fatalf("tick rate default: %d", tn.TickRateHz)
	}
	if tn.BrightThreshold != 0.75 {
		t.Fatalf("bright threshold default: %v", tn.BrightThreshold)
	}
	if tn.Caches.LOSTTLMs != 5000 || tn.Caches.VisibilityTTLMs != 3000 || tn.Caches.ValidationTTLMs != 500 {
		t.Fatalf("cache ttl defaults: %+v", tn.Caches)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	tn := Tuning{TickRateHz: 5, MaxVisibility: 60, Enabled: true}
	tn.ApplyDefaults()
	if tn.TickRateHz != 5 || tn.MaxVisibility != 60 || !tn.Enabled {
		t.Fatalf("explicit values overwritten: %+v", tn)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tuning.yaml")
	raw := []byte("protocol_version: \"1.0\"\ntick_rate_hz: 10\nenabled: true\nmax_visibility: 90\ncaches:\n  los_ttl_ms: 2000\n")
	if err := os.WriteFile(p, raw, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	tn, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if tn.TickRateHz != 10 || !tn.Enabled || tn.MaxVisibility != 90 {
		t.Fatalf("loaded values: %+v", tn)
	}
	if tn.Caches.LOSTTLMs != 2000 {
		t.Fatalf("explicit cache ttl overwritten: %+v", tn.Caches)
	}
	if tn.Caches.VisibilityTTLMs != 3000 {
		t.Fatalf("defaulted cache ttl: %+v", tn.Caches)
	}
}
