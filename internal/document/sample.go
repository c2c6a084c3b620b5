package document

import (
	"fmt"

	"github.com/hunt-tickets/venuemap/internal/typeid"
)

// NewEmptyVenueMap creates an empty layout with the default canvas and viewport.
func NewEmptyVenueMap(id, eventID, name string) *VenueMap {
	if name == "" {
		name = "Untitled venue"
	}
	return &VenueMap{
		ID:      id,
		Name:    name,
		EventID: eventID,
		Canvas: Canvas{
			Width:           1200,
			Height:          800,
			BackgroundColor: "#0a0a0a",
			ShowGrid:        true,
			GridSize:        20,
			ShowRulers:      false,
		},
		Elements:     map[string]Element{},
		ElementOrder: []string{},
		SelectedIDs:  []string{},
		Viewport:     Viewport{Zoom: 1, OffsetX: 0, OffsetY: 0},
		History:      []HistoryEntry{},
		HistoryIndex: -1,
	}
}

// NewZone builds a zone element styled from the preset for zoneType.
func NewZone(id, name, zoneType string, x, y, w, h float64) Element {
	preset := LookupZonePreset(zoneType)
	capacity := preset.DefaultCapacity
	if name == "" {
		name = preset.Label
	}
	return Element{
		ID:        id,
		Type:      ElementTypeZone,
		Name:      name,
		Transform: Transform{X: x, Y: y, Width: w, Height: h, ScaleX: 1, ScaleY: 1},
		Style: Style{
			Fill:         preset.Fill,
			Stroke:       preset.Stroke,
			StrokeWidth:  2,
			Opacity:      0.8,
			BorderRadius: 4,
		},
		IsVisible: true,
		Zone: &ZoneData{
			ZoneType: preset.Key,
			Capacity: &capacity,
		},
	}
}

// NewSeat builds a standalone seat element.
func NewSeat(id, row string, number int, x, y, w, h float64) Element {
	return Element{
		ID:        id,
		Type:      ElementTypeSeat,
		Name:      fmt.Sprintf("%s%d", row, number),
		Transform: Transform{X: x, Y: y, Width: w, Height: h, ScaleX: 1, ScaleY: 1},
		Style: Style{
			Fill:         "#64748b",
			Stroke:       "#334155",
			StrokeWidth:  1,
			Opacity:      1,
			BorderRadius: 3,
		},
		IsVisible: true,
		Seat:      &SeatData{Row: row, Number: number},
	}
}

// NewStage builds a stage element.
func NewStage(id, label string, x, y, w, h float64) Element {
	return Element{
		ID:        id,
		Type:      ElementTypeStage,
		Name:      label,
		Transform: Transform{X: x, Y: y, Width: w, Height: h, ScaleX: 1, ScaleY: 1},
		Style: Style{
			Fill:         "#27272a",
			Stroke:       "#a1a1aa",
			StrokeWidth:  2,
			Opacity:      1,
			BorderRadius: 0,
		},
		IsVisible: true,
		Stage:     &StageData{Label: label},
	}
}

// NewText builds a text label element.
func NewText(id, text string, x, y, w, h float64) Element {
	return Element{
		ID:        id,
		Type:      ElementTypeText,
		Name:      text,
		Transform: Transform{X: x, Y: y, Width: w, Height: h, ScaleX: 1, ScaleY: 1},
		Style: Style{
			Fill:        "transparent",
			Stroke:      "transparent",
			StrokeWidth: 0,
			Opacity:     1,
		},
		IsVisible: true,
		Text:      &TextData{Text: text, FontSize: 16},
	}
}

// NewSampleVenueMap builds a small layout with a stage and three zones.
func NewSampleVenueMap(eventID string) *VenueMap {
	m := NewEmptyVenueMap(typeid.NewMapID(), eventID, "Sample venue")

	stageID := typeid.NewElementID()
	generalID := typeid.NewElementID()
	vipID := typeid.NewElementID()
	boxID := typeid.NewElementID()

	vip := NewZone(vipID, "VIP", "vip", 400, 200, 400, 120)
	price := 250000.0
	vip.Zone.Price = &price
	for i := 1; i <= 6; i++ {
		vip.Zone.Seats = append(vip.Zone.Seats, Seat{ID: typeid.NewSeatID(), Row: "A", Number: i})
	}

	elements := []Element{
		NewStage(stageID, "Escenario", 400, 40, 400, 100),
		NewZone(generalID, "General", "general", 200, 360, 800, 300),
		vip,
		NewZone(boxID, "Palco 1", "box", 60, 200, 120, 120),
	}
	for i, el := range elements {
		el.ZIndex = i
		m.Elements[el.ID] = el
		m.ElementOrder = append(m.ElementOrder, el.ID)
	}
	return m
}
