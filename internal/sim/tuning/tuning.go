package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz    int `yaml:"tick_rate_hz"`
	DebounceTicks int `yaml:"debounce_ticks"`

	// Engine toggles (the host settings surface).
	Enabled       bool `yaml:"enabled"`
	EncounterOnly bool `yaml:"encounter_only"`
	DebugLog      bool `yaml:"debug_log"`

	// Spatial parameters.
	MaxVisibility   float64 `yaml:"max_visibility"`
	QuantizeStep    float64 `yaml:"quantize_step"`
	BrightThreshold float64 `yaml:"bright_threshold"`

	Caches CacheTuning `yaml:"caches"`
}

type CacheTuning struct {
	LOSTTLMs        int `yaml:"los_ttl_ms"`
	VisibilityTTLMs int `yaml:"visibility_ttl_ms"`
	ValidationTTLMs int `yaml:"validation_ttl_ms"`
	PruneEveryMs    int `yaml:"prune_every_ms"`
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	t.ApplyDefaults()
	return t, nil
}

func (t *Tuning) ApplyDefaults() {
	if t.ProtocolVersion == "" {
		t.ProtocolVersion = "1.0"
	}
	if t.TickRateHz <= 0 {
		t.TickRateHz = 20
	}
	if t.DebounceTicks <= 0 {
		t.DebounceTicks = 2
	}
	if t.MaxVisibility <= 0 {
		t.MaxVisibility = 120
	}
	if t.QuantizeStep <= 0 {
		t.QuantizeStep = 2.5
	}
	if t.BrightThreshold <= 0 || t.BrightThreshold > 1 {
		t.BrightThreshold = 0.75
	}
	t.Caches.applyDefaults()
}

func (c *CacheTuning) applyDefaults() {
	if c.LOSTTLMs <= 0 {
		c.LOSTTLMs = 5000
	}
	if c.VisibilityTTLMs <= 0 {
		c.VisibilityTTLMs = 3000
	}
	if c.ValidationTTLMs <= 0 {
		c.ValidationTTLMs = 500
	}
	if c.PruneEveryMs <= 0 {
		c.PruneEveryMs = 1000
	}
}
