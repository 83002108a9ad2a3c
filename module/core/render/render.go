// Package render produces the HTML map and dashboard pages. Zones are drawn
// as red filled circles and the user as a blue marker on a Leaflet map.
package render

import (
	_ "embed"
	"html/template"
	"io"

	"github.com/nandanugg/roadsafe/module/core/domain"
)

const (
	Title           = "Road Accident App"
	SafeMessage     = "Safe to navigate"
	AlertMessage    = "Beware! You are in an Accident Prone Region"
	LocationWarning = "Error getting user location. Please try again later."
	DefaultZoom     = 5
)

//go:embed templates/pages.html
var pagesHTML string

var pages = template.Must(template.New("pages").Parse(pagesHTML))

type MapData struct {
	Center    domain.GeoPoint
	Zoom      int
	Geofences []domain.Geofence
	// User is nil when only zones are drawn.
	User *domain.GeoPoint
}

type DashboardData struct {
	Location *domain.UserLocation
	Result   *domain.CheckResult
	Warning  string
	Map      *MapData
}

func (d DashboardData) Title() string { return Title }

func (d DashboardData) Verdict() string {
	if d.Result == nil {
		return ""
	}
	if d.Result.Outside {
		return SafeMessage
	}
	return AlertMessage
}

// NewMapData centers the map on the user at the default zoom.
func NewMapData(user domain.GeoPoint, geofences []domain.Geofence) *MapData {
	return &MapData{
		Center:    user,
		Zoom:      DefaultZoom,
		Geofences: nonNil(geofences),
		User:      &user,
	}
}

func Map(w io.Writer, data *MapData) error {
	return pages.ExecuteTemplate(w, "map_page", data)
}

func Dashboard(w io.Writer, data DashboardData) error {
	return pages.ExecuteTemplate(w, "dashboard", data)
}

func nonNil(geofences []domain.Geofence) []domain.Geofence {
	if geofences == nil {
		return []domain.Geofence{}
	}
	return geofences
}
