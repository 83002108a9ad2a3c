package domain

// UserLocation is a resolved position plus whatever the provider knew about it.
type UserLocation struct {
	Point   GeoPoint `json:"point"`
	IP      string   `json:"ip,omitempty"`
	City    string   `json:"city,omitempty"`
	Region  string   `json:"region,omitempty"`
	Country string   `json:"country,omitempty"`
	Source  string   `json:"source"`
}
