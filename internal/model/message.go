package model

// FlyRequest asks the drone to fly one of the firmware shapes.
type FlyRequest struct {
	Shape string `json:"shape"`
}

// AltitudeRequest sets the autonomous target altitude in millimeters.
type AltitudeRequest struct {
	AltitudeMm int `json:"altitude_mm"`
}

// OverrideRequest toggles the manual override flag on the drone without
// starting the keyboard control loop.
type OverrideRequest struct {
	Enable bool `json:"enable"`
}

// KeyEvent is a raw key transition sent by a UI over the websocket while
// manual control is active.
type KeyEvent struct {
	Type  string `json:"type"` // "down" or "up"
	Input string `json:"input"`
}

// Status is the controller snapshot pushed to websocket clients and served
// at /api/status.
type Status struct {
	LinkState    string `json:"link_state"`
	Endpoint     string `json:"endpoint"`
	ManualActive bool   `json:"manual_active"`
	Thrust       uint16 `json:"thrust"`
	NavState     uint8  `json:"nav_state,omitempty"`
	NavAltMm     uint16 `json:"nav_alt_mm,omitempty"`
}

// ErrorResponse is the JSON body returned for rejected intents.
type ErrorResponse struct {
	Error string `json:"error"`
}
