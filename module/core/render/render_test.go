package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandanugg/roadsafe/module/core/domain"
)

var (
	user   = domain.GeoPoint{Lat: 40.0, Lon: -75.0}
	fences = []domain.Geofence{
		{Center: domain.GeoPoint{Lat: 40.0, Lon: -75.0}, Radius: 1000, Label: "I-95 exit 3"},
		{Center: domain.GeoPoint{Lat: 12.9716, Lon: 77.5946}, Radius: 250},
	}
)

func TestMap(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Map(&buf, NewMapData(user, fences)))

	out := buf.String()
	assert.Contains(t, out, `L.map("map")`)
	assert.Contains(t, out, `"radius":1000`)
	assert.Contains(t, out, `"latitude":12.9716`)
	assert.Contains(t, out, `"User Location"`)
	assert.Regexp(t, `setView\(\[center\.latitude, center\.longitude\],\s*5\s*\)`, out)
}

func TestMap_NoZones(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Map(&buf, NewMapData(user, nil)))
	assert.Contains(t, buf.String(), "var zones = [];")
}

func TestMap_EscapesLabels(t *testing.T) {
	var buf bytes.Buffer
	evil := []domain.Geofence{{Center: user, Radius: 10, Label: "</script><script>alert(1)</script>"}}
	require.NoError(t, Map(&buf, NewMapData(user, evil)))
	assert.NotContains(t, buf.String(), "<script>alert(1)")
}

func TestMap_LabelsRenderedAsText(t *testing.T) {
	var buf bytes.Buffer
	labelled := []domain.Geofence{{Center: user, Radius: 10, Label: `<img src=x onerror=alert(1)>`}}
	require.NoError(t, Map(&buf, NewMapData(user, labelled)))

	out := buf.String()
	assert.Contains(t, out, "popup.textContent = z.label")
	assert.NotContains(t, out, "bindPopup(z.label)")
	assert.NotContains(t, out, "<img src=x")
}

func TestDashboard_Verdicts(t *testing.T) {
	loc := &domain.UserLocation{Point: user, IP: "203.0.113.7"}

	tests := []struct {
		name    string
		outside bool
		want    string
		notWant string
	}{
		{"outside", true, SafeMessage, AlertMessage},
		{"inside", false, AlertMessage, SafeMessage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := Dashboard(&buf, DashboardData{
				Location: loc,
				Result:   &domain.CheckResult{Point: user, Outside: tt.outside},
				Map:      NewMapData(user, fences),
			})
			require.NoError(t, err)

			out := buf.String()
			assert.Contains(t, out, "<h1>Road Accident App</h1>")
			assert.Contains(t, out, "Latitude: 40, Longitude: -75")
			assert.Contains(t, out, tt.want)
			assert.NotContains(t, out, tt.notWant)
		})
	}
}

func TestDashboard_Warning(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Dashboard(&buf, DashboardData{Warning: LocationWarning}))

	out := buf.String()
	assert.Contains(t, out, "Error getting user location")
	assert.NotContains(t, out, SafeMessage)
	assert.NotContains(t, out, `id="map"`)
}
