package document

// VenueMap is the editable venue layout for one event.
type VenueMap struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	EventID      string             `json:"eventId"`
	Canvas       Canvas             `json:"canvas"`
	Elements     map[string]Element `json:"elements"`
	ElementOrder []string           `json:"elementOrder"`
	SelectedIDs  []string           `json:"selectedIds"`
	Viewport     Viewport           `json:"viewport"`
	History      []HistoryEntry     `json:"history"`
	HistoryIndex int                `json:"historyIndex"`
	LastModified int64              `json:"lastModified"` // unix millis
}

// Canvas describes the drawing area, in canvas units.
type Canvas struct {
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	BackgroundColor string  `json:"backgroundColor"`
	ShowGrid        bool    `json:"showGrid"`
	GridSize        float64 `json:"gridSize"`
	ShowRulers      bool    `json:"showRulers"`
}

// Viewport maps canvas units to screen pixels: screen = canvas*zoom + offset.
type Viewport struct {
	Zoom    float64 `json:"zoom"`
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
}

// HistoryEntry is a recorded copy of the editable state after an action.
type HistoryEntry struct {
	Action       string             `json:"action"`
	Timestamp    int64              `json:"timestamp"`
	Elements     map[string]Element `json:"elements"`
	ElementOrder []string           `json:"elementOrder"`
	SelectedIDs  []string           `json:"selectedIds"`
}

type ElementType string

const (
	ElementTypeZone  ElementType = "zone"
	ElementTypeSeat  ElementType = "seat"
	ElementTypeStage ElementType = "stage"
	ElementTypeText  ElementType = "text"
)

// Transform places an element: top-left corner, size and rotation in degrees.
type Transform struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation float64 `json:"rotation"` // degrees
	ScaleX   float64 `json:"scaleX"`
	ScaleY   float64 `json:"scaleY"`
}

type Style struct {
	Fill         string  `json:"fill"`
	Stroke       string  `json:"stroke"`
	StrokeWidth  float64 `json:"strokeWidth"`
	Opacity      float64 `json:"opacity"`
	BorderRadius float64 `json:"borderRadius"`
}

// Element is one placed shape. Exactly one of the variant payloads is set,
// matching Type.
type Element struct {
	ID        string      `json:"id"`
	Type      ElementType `json:"type"`
	Name      string      `json:"name"`
	ZIndex    int         `json:"zIndex"`
	Transform Transform   `json:"transform"`
	Style     Style       `json:"style"`
	IsVisible bool        `json:"isVisible"`
	IsLocked  bool        `json:"isLocked"`

	Zone  *ZoneData  `json:"zone,omitempty"`
	Seat  *SeatData  `json:"seat,omitempty"`
	Stage *StageData `json:"stage,omitempty"`
	Text  *TextData  `json:"text,omitempty"`
}

type ZoneData struct {
	ZoneType string   `json:"zoneType"`
	Capacity *int     `json:"capacity,omitempty"`
	Price    *float64 `json:"price,omitempty"`
	Seats    []Seat   `json:"seats,omitempty"`
}

// Seat is a seat record managed inside a zone.
type Seat struct {
	ID       string `json:"id"`
	Row      string `json:"row"`
	Number   int    `json:"number"`
	Occupied bool   `json:"occupied"`
}

type SeatData struct {
	Row      string `json:"row"`
	Number   int    `json:"number"`
	Occupied bool   `json:"occupied"`
}

type StageData struct {
	Label string `json:"label"`
}

type TextData struct {
	Text     string  `json:"text"`
	FontSize float64 `json:"fontSize"`
}

// Clone returns a deep copy; payload pointers and seat slices are not shared.
func (e Element) Clone() Element {
	out := e
	if e.Zone != nil {
		z := *e.Zone
		if e.Zone.Capacity != nil {
			c := *e.Zone.Capacity
			z.Capacity = &c
		}
		if e.Zone.Price != nil {
			p := *e.Zone.Price
			z.Price = &p
		}
		if e.Zone.Seats != nil {
			z.Seats = append([]Seat(nil), e.Zone.Seats...)
		}
		out.Zone = &z
	}
	if e.Seat != nil {
		s := *e.Seat
		out.Seat = &s
	}
	if e.Stage != nil {
		s := *e.Stage
		out.Stage = &s
	}
	if e.Text != nil {
		t := *e.Text
		out.Text = &t
	}
	return out
}

// CloneElements deep-copies an element map.
func CloneElements(elements map[string]Element) map[string]Element {
	out := make(map[string]Element, len(elements))
	for id, el := range elements {
		out[id] = el.Clone()
	}
	return out
}

// Bounds returns the axis-aligned box of the element in canvas units.
// Rotation is not applied.
func (e Element) Bounds() (x, y, w, h float64) {
	return e.Transform.X, e.Transform.Y, e.Transform.Width, e.Transform.Height
}

// OccupiedSeats counts occupied seats of a zone or seat element.
func (e Element) OccupiedSeats() int {
	switch {
	case e.Zone != nil:
		n := 0
		for _, s := range e.Zone.Seats {
			if s.Occupied {
				n++
			}
		}
		return n
	case e.Seat != nil && e.Seat.Occupied:
		return 1
	}
	return 0
}

// Clone deep-copies the whole map, history included.
func (m *VenueMap) Clone() *VenueMap {
	out := *m
	out.Elements = CloneElements(m.Elements)
	out.ElementOrder = append([]string{}, m.ElementOrder...)
	out.SelectedIDs = append([]string{}, m.SelectedIDs...)
	out.History = make([]HistoryEntry, len(m.History))
	for i, h := range m.History {
		out.History[i] = HistoryEntry{
			Action:       h.Action,
			Timestamp:    h.Timestamp,
			Elements:     CloneElements(h.Elements),
			ElementOrder: append([]string{}, h.ElementOrder...),
			SelectedIDs:  append([]string{}, h.SelectedIDs...),
		}
	}
	return &out
}
