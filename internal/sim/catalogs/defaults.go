package catalogs

import "encoding/json"

// Default returns the built-in catalogs. cmd/server prefers the files under
// configs/ so operators can extend the alias tables without a rebuild; tests
// and embedded use fall back to this set.
func Default() *Catalogs {
	var c Catalogs
	sensesRaw, _ := json.Marshal(defaultSenses)
	_ = buildSenses(defaultSenses, sensesRaw, &c.Senses)
	condsRaw, _ := json.Marshal(defaultConditions)
	_ = buildConditions(defaultConditions, condsRaw, &c.Conditions)
	return &c
}

var defaultSenses = []SenseDef{
	{ID: "vision", Visual: true, DefaultAcuity: "precise", Aliases: []string{"sight", "basicsight", "basic-sight", "normal-vision"}},
	{ID: "lowlightvision", Visual: true, DefaultAcuity: "precise", Aliases: []string{"low-light-vision", "lowlight"}},
	{ID: "darkvision", Visual: true, DefaultAcuity: "precise", Aliases: []string{"dark-vision"}},
	{ID: "greaterdarkvision", Visual: true, DefaultAcuity: "precise", Aliases: []string{"greater-darkvision", "darkvision-greater"}},
	{ID: "hearing", DefaultAcuity: "imprecise", Aliases: []string{"sound"}},
	{ID: "scent", DefaultAcuity: "imprecise", Aliases: []string{"smell"}},
	{ID: "tremorsense", GroundOnly: true, DefaultAcuity: "imprecise", Aliases: []string{"tremor", "vibration-sense"}},
	{ID: "echolocation", DefaultAcuity: "precise", Aliases: []string{"sonar"}},
	{ID: "lifesense", DefaultAcuity: "imprecise", Aliases: []string{"life-sense"}},
	{ID: "thoughtsense", DefaultAcuity: "imprecise", Aliases: []string{"thought-sense"}},
}

var defaultConditions = []ConditionDef{
	{ID: "blinded", Aliases: []string{"blind"}},
	{ID: "dazzled", Aliases: []string{"dazzle"}},
	{ID: "deafened", Aliases: []string{"deaf"}},
	{ID: "invisible", Aliases: []string{"invisibility"}},
}
