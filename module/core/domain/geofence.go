package domain

import "time"

type GeoPoint struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Geofence is a circular zone; Radius is in meters.
type Geofence struct {
	Center GeoPoint `json:"center"`
	Radius float64  `json:"radius"`
	Label  string   `json:"label,omitempty"`
}

type ZoneEventType string

const (
	ZoneEntry ZoneEventType = "zone_entry"
)

type CheckResult struct {
	Subject   string     `json:"subject"`
	Point     GeoPoint   `json:"point"`
	Outside   bool       `json:"outside"`
	Zones     []Geofence `json:"zones"`
	CheckedAt time.Time  `json:"checked_at"`
}

type ZoneAlert struct {
	Subject   string        `json:"subject"`
	Event     ZoneEventType `json:"event"`
	Point     GeoPoint      `json:"point"`
	Zones     []Geofence    `json:"zones"`
	Timestamp int64         `json:"timestamp"`
}

type HistoryQuery struct {
	Subject string
	Start   time.Time
	End     time.Time
}
