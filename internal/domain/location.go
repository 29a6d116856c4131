package domain

import "fmt"

// Fix is a single current-location fix.
type Fix struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// MapsLink formats the fix as a maps URL suitable for appending to a message.
func (f Fix) MapsLink() string {
	return fmt.Sprintf("https://maps.google.com/?q=%f,%f", f.Lat, f.Lon)
}

// ComposeMessage appends the location link to the template body on its own
// line. A nil fix leaves the body untouched.
func ComposeMessage(body string, fix *Fix) string {
	if fix == nil {
		return body
	}
	if body == "" {
		return fix.MapsLink()
	}
	return body + "\n" + fix.MapsLink()
}
