// Package queue publishes layout domain events to RabbitMQ.
package queue

// LayoutSavedQueue is the durable queue layout.saved events are routed to.
const LayoutSavedQueue = "layout.saved"

// LayoutSavedEvent is published after a layout is persisted, so ticketing
// can refresh zone capacities and prices without polling.
type LayoutSavedEvent struct {
	LayoutID      string  `json:"layout_id"`
	EventID       string  `json:"event_id"`
	Name          string  `json:"name"`
	Version       int     `json:"version"`
	Zones         int     `json:"zones"`
	TotalCapacity int     `json:"total_capacity"`
	Seats         int     `json:"seats"`
	MinPrice      float64 `json:"min_price"`
	MaxPrice      float64 `json:"max_price"`
	SavedBy       string  `json:"saved_by"`
	SavedAt       string  `json:"saved_at"`
}
