package document

// ZonePreset is a named zone style with its default capacity.
type ZonePreset struct {
	Key             string `json:"key"`
	Label           string `json:"label"`
	Icon            string `json:"icon"`
	Fill            string `json:"fill"`
	Stroke          string `json:"stroke"`
	DefaultCapacity int    `json:"defaultCapacity"`
}

const DefaultZoneType = "general"

var zonePresets = map[string]ZonePreset{
	"general":      {Key: "general", Label: "General", Icon: "users", Fill: "#3b82f6", Stroke: "#1d4ed8", DefaultCapacity: 100},
	"vip":          {Key: "vip", Label: "VIP", Icon: "crown", Fill: "#eab308", Stroke: "#a16207", DefaultCapacity: 50},
	"preferential": {Key: "preferential", Label: "Preferencial", Icon: "star", Fill: "#a855f7", Stroke: "#7e22ce", DefaultCapacity: 80},
	"box":          {Key: "box", Label: "Palco", Icon: "armchair", Fill: "#ef4444", Stroke: "#b91c1c", DefaultCapacity: 10},
	"standing":     {Key: "standing", Label: "Standing", Icon: "footprints", Fill: "#22c55e", Stroke: "#15803d", DefaultCapacity: 200},
	"accessible":   {Key: "accessible", Label: "Accessible", Icon: "accessibility", Fill: "#06b6d4", Stroke: "#0e7490", DefaultCapacity: 20},
}

// LookupZonePreset returns the preset for key, falling back to general.
func LookupZonePreset(key string) ZonePreset {
	if p, ok := zonePresets[key]; ok {
		return p
	}
	return zonePresets[DefaultZoneType]
}

// ZonePresets lists all presets in a stable order.
func ZonePresets() []ZonePreset {
	keys := []string{"general", "vip", "preferential", "box", "standing", "accessible"}
	out := make([]ZonePreset, 0, len(keys))
	for _, k := range keys {
		out = append(out, zonePresets[k])
	}
	return out
}
