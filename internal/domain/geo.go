package domain

type Coordinates struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// RouteEstimate is a distance-matrix result normalized to km and whole minutes.
type RouteEstimate struct {
	DistanceKm   float64 `json:"distance"`
	DurationMin  int     `json:"duration"`
	DistanceText string  `json:"distanceText,omitempty"`
	DurationText string  `json:"durationText,omitempty"`
}

type RouteStep struct {
	Instruction string      `json:"instruction"`
	DistanceM   int         `json:"distanceMeters"`
	DurationS   int         `json:"durationSeconds"`
	Start       Coordinates `json:"start"`
	End         Coordinates `json:"end"`
	Polyline    string      `json:"polyline,omitempty"`
}

type RoutePlan struct {
	RouteEstimate
	Polyline string      `json:"polyline,omitempty"`
	Steps    []RouteStep `json:"steps,omitempty"`
}
