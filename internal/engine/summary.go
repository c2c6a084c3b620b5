package engine

import "github.com/hunt-tickets/venuemap/internal/document"

// Summary aggregates the sellable shape of a layout.
type Summary struct {
	Elements      int     `json:"elements"`
	Zones         int     `json:"zones"`
	TotalCapacity int     `json:"totalCapacity"`
	Seats         int     `json:"seats"`
	OccupiedSeats int     `json:"occupiedSeats"`
	MinPrice      float64 `json:"minPrice"`
	MaxPrice      float64 `json:"maxPrice"`
}

// Summarize counts zones, seats and capacity and reports the price range.
func Summarize(doc *document.VenueMap) Summary {
	s := Summary{Elements: len(doc.Elements)}
	pricedZones := 0
	for _, el := range doc.Elements {
		switch {
		case el.Zone != nil:
			s.Zones++
			if el.Zone.Capacity != nil {
				s.TotalCapacity += *el.Zone.Capacity
			}
			s.Seats += len(el.Zone.Seats)
			if p := el.Zone.Price; p != nil {
				if pricedZones == 0 || *p < s.MinPrice {
					s.MinPrice = *p
				}
				if pricedZones == 0 || *p > s.MaxPrice {
					s.MaxPrice = *p
				}
				pricedZones++
			}
		case el.Seat != nil:
			s.Seats++
		}
		s.OccupiedSeats += el.OccupiedSeats()
	}
	return s
}

// Summary summarizes the editor's document.
func (e *Editor) Summary() Summary {
	return Summarize(e.doc)
}
