package domain

// Color is a palette entry; rendering is left to the driver.
type Color struct {
	Index int    `json:"index"`
	Hex   string `json:"hex"`
	Label string `json:"label"`
}

// Palette covers MaxParticipants so every slot gets a distinct color.
var Palette = [MaxParticipants]Color{
	{Index: 0, Hex: "#FF0000", Label: "Red"},
	{Index: 1, Hex: "#00FF00", Label: "Green"},
	{Index: 2, Hex: "#0000FF", Label: "Blue"},
	{Index: 3, Hex: "#FF0066", Label: "Pink"},
	{Index: 4, Hex: "#FF00FF", Label: "Magenta"},
}

// ColorForSlot wraps around the palette.
func ColorForSlot(slot int) Color {
	return Palette[slot%len(Palette)]
}
