package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

type Catalogs struct {
	Senses     SenseCatalog
	Conditions ConditionCatalog
}

type SenseCatalog struct {
	Defs    map[string]SenseDef // canonical type -> def
	Aliases map[string]string   // normalized raw name -> canonical type
	Digest  string
}

type SenseDef struct {
	ID            string   `json:"id"`
	Visual        bool     `json:"visual"`
	GroundOnly    bool     `json:"ground_only,omitempty"`
	DefaultAcuity string   `json:"default_acuity"` // "precise" or "imprecise"
	Aliases       []string `json:"aliases,omitempty"`
}

type ConditionCatalog struct {
	Defs    map[string]ConditionDef
	Aliases map[string]string
	Digest  string
}

type ConditionDef struct {
	ID      string   `json:"id"`
	Aliases []string `json:"aliases,omitempty"`
}

func Load(configDir string) (*Catalogs, error) {
	var c Catalogs
	if err := loadSenses(filepath.Join(configDir, "senses.json"), &c.Senses); err != nil {
		return nil, err
	}
	if err := loadConditions(filepath.Join(configDir, "conditions.json"), &c.Conditions); err != nil {
		return nil, err
	}
	return &c, nil
}

func loadSenses(path string, out *SenseCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("senses.json: %w", err)
	}
	var defs []SenseDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("senses.json: %w", err)
	}
	return buildSenses(defs, raw, out)
}

func buildSenses(defs []SenseDef, raw []byte, out *SenseCatalog) error {
	out.Defs = map[string]SenseDef{}
	out.Aliases = map[string]string{}
	for _, d := range defs {
		id := NormalizeName(d.ID)
		if id == "" {
			return fmt.Errorf("sense def with empty id")
		}
		if _, dup := out.Defs[id]; dup {
			return fmt.Errorf("duplicate sense def: %s", id)
		}
		switch d.DefaultAcuity {
		case "precise", "imprecise":
		default:
			return fmt.Errorf("sense %s: bad default_acuity %q", id, d.DefaultAcuity)
		}
		d.ID = id
		out.Defs[id] = d
		out.Aliases[id] = id
		for _, a := range d.Aliases {
			out.Aliases[NormalizeName(a)] = id
		}
	}
	out.Digest = digestOf(raw)
	return nil
}

func loadConditions(path string, out *ConditionCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("conditions.json: %w", err)
	}
	var defs []ConditionDef
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("conditions.json: %w", err)
	}
	return buildConditions(defs, raw, out)
}

func buildConditions(defs []ConditionDef, raw []byte, out *ConditionCatalog) error {
	out.Defs = map[string]ConditionDef{}
	out.Aliases = map[string]string{}
	for _, d := range defs {
		id := NormalizeName(d.ID)
		if id == "" {
			return fmt.Errorf("condition def with empty id")
		}
		if _, dup := out.Defs[id]; dup {
			return fmt.Errorf("duplicate condition def: %s", id)
		}
		d.ID = id
		out.Defs[id] = d
		out.Aliases[id] = id
		for _, a := range d.Aliases {
			out.Aliases[NormalizeName(a)] = id
		}
	}
	out.Digest = digestOf(raw)
	return nil
}

// NormalizeName lowercases and strips separators so "Basic Sight",
// "basic-sight" and "basicSight" all key the same alias entry.
func NormalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, "_", "")
	return s
}

// CanonicalSense maps a raw sense name to its canonical type.
// Unknown names pass through normalized so they still merge consistently.
func (c *SenseCatalog) CanonicalSense(raw string) string {
	n := NormalizeName(raw)
	if id, ok := c.Aliases[n]; ok {
		return id
	}
	return n
}

func (c *ConditionCatalog) CanonicalCondition(raw string) string {
	n := NormalizeName(raw)
	if id, ok := c.Aliases[n]; ok {
		return id
	}
	return n
}

func digestOf(raw []byte) string {
	// Digest over the canonical re-marshal so formatting doesn't matter.
	var v any
	if err := json.Unmarshal(raw, &v); err == nil {
		if b, err := canonicalJSON(v); err == nil {
			raw = b
		}
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

func canonicalJSON(v any) ([]byte, error) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := []byte{'{'}
		for i, k := range keys {
			if i > 0 {
				out = append(out, ',')
			}
			kb, _ := json.Marshal(k)
			out = append(out, kb...)
			out = append(out, ':')
			vb, err := canonicalJSON(t[k])
			if err != nil {
				return nil, err
			}
			out = append(out, vb...)
		}
		return append(out, '}'), nil
	case []any:
		out := []byte{'['}
		for i, e := range t {
			if i > 0 {
				out = append(out, ',')
			}
			eb, err := canonicalJSON(e)
			if err != nil {
				return nil, err
			}
			out = append(out, eb...)
		}
		return append(out, ']'), nil
	default:
		return json.Marshal(v)
	}
}
