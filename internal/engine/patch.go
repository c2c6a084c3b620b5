package engine

import "github.com/hunt-tickets/venuemap/internal/document"

// ElementPatch is a partial element update. Nil fields are left untouched;
// variant fields are ignored on elements of another type.
type ElementPatch struct {
	Name *string `json:"name,omitempty"`

	X        *float64 `json:"x,omitempty"`
	Y        *float64 `json:"y,omitempty"`
	Width    *float64 `json:"width,omitempty"`
	Height   *float64 `json:"height,omitempty"`
	Rotation *float64 `json:"rotation,omitempty"`

	Fill         *string  `json:"fill,omitempty"`
	Stroke       *string  `json:"stroke,omitempty"`
	StrokeWidth  *float64 `json:"strokeWidth,omitempty"`
	Opacity      *float64 `json:"opacity,omitempty"`
	BorderRadius *float64 `json:"borderRadius,omitempty"`

	IsVisible *bool `json:"isVisible,omitempty"`
	IsLocked  *bool `json:"isLocked,omitempty"`

	ZoneType *string  `json:"zoneType,omitempty"`
	Capacity *int     `json:"capacity,omitempty"`
	Price    *float64 `json:"price,omitempty"`

	Row      *string `json:"row,omitempty"`
	Number   *int    `json:"number,omitempty"`
	Occupied *bool   `json:"occupied,omitempty"`

	Text     *string  `json:"text,omitempty"`
	FontSize *float64 `json:"fontSize,omitempty"`
}

func (p ElementPatch) apply(el document.Element) document.Element {
	el = el.Clone()

	setString(&el.Name, p.Name)
	setFloat(&el.Transform.X, p.X)
	setFloat(&el.Transform.Y, p.Y)
	setFloat(&el.Transform.Width, p.Width)
	setFloat(&el.Transform.Height, p.Height)
	setFloat(&el.Transform.Rotation, p.Rotation)

	setString(&el.Style.Fill, p.Fill)
	setString(&el.Style.Stroke, p.Stroke)
	setFloat(&el.Style.StrokeWidth, p.StrokeWidth)
	setFloat(&el.Style.Opacity, p.Opacity)
	setFloat(&el.Style.BorderRadius, p.BorderRadius)

	if p.IsVisible != nil {
		el.IsVisible = *p.IsVisible
	}
	if p.IsLocked != nil {
		el.IsLocked = *p.IsLocked
	}

	if z := el.Zone; z != nil {
		if p.ZoneType != nil {
			z.ZoneType = document.LookupZonePreset(*p.ZoneType).Key
		}
		if p.Capacity != nil {
			c := *p.Capacity
			z.Capacity = &c
		}
		if p.Price != nil {
			v := *p.Price
			z.Price = &v
		}
	}
	if s := el.Seat; s != nil {
		setString(&s.Row, p.Row)
		if p.Number != nil {
			s.Number = *p.Number
		}
		if p.Occupied != nil {
			s.Occupied = *p.Occupied
		}
	}
	if t := el.Text; t != nil {
		setString(&t.Text, p.Text)
		setFloat(&t.FontSize, p.FontSize)
	}
	if s := el.Stage; s != nil && p.Name != nil {
		s.Label = *p.Name
	}
	return el
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}
