package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nandanugg/roadsafe/module/core/domain"
	"github.com/nandanugg/roadsafe/module/core/render"
)

type mockGeofenceService struct {
	geofences    []domain.Geofence
	checkFn      func(ctx context.Context, subject string, p domain.GeoPoint) (*domain.CheckResult, error)
	latestFn     func(ctx context.Context, subject string) (*domain.CheckResult, error)
	historyFn    func(ctx context.Context, query *domain.HistoryQuery) ([]domain.CheckResult, error)
	evaluateCall int
}

func (m *mockGeofenceService) Geofences() []domain.Geofence { return m.geofences }

func (m *mockGeofenceService) Evaluate(subject string, p domain.GeoPoint) *domain.CheckResult {
	m.evaluateCall++
	return &domain.CheckResult{Subject: subject, Point: p, Outside: true}
}

func (m *mockGeofenceService) Check(ctx context.Context, subject string, p domain.GeoPoint) (*domain.CheckResult, error) {
	return m.checkFn(ctx, subject, p)
}

func (m *mockGeofenceService) Latest(ctx context.Context, subject string) (*domain.CheckResult, error) {
	return m.latestFn(ctx, subject)
}

func (m *mockGeofenceService) History(ctx context.Context, query *domain.HistoryQuery) ([]domain.CheckResult, error) {
	return m.historyFn(ctx, query)
}

type mockLocationService struct {
	locateFn func(ctx context.Context, ip string) (*domain.UserLocation, error)
}

func (m *mockLocationService) Locate(ctx context.Context, ip string) (*domain.UserLocation, error) {
	return m.locateFn(ctx, ip)
}

var zone = domain.Geofence{Center: domain.GeoPoint{Lat: 40.0, Lon: -75.0}, Radius: 1000, Label: "I-95 exit 3"}

func insideCheck(_ context.Context, subject string, p domain.GeoPoint) (*domain.CheckResult, error) {
	return &domain.CheckResult{
		Subject:   subject,
		Point:     p,
		Outside:   false,
		Zones:     []domain.Geofence{zone},
		CheckedAt: time.Unix(1715003456, 0),
	}, nil
}

func setupRouter(geo geofenceService, loc locationService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	log, _ := logtest.NewNullLogger()
	h := NewGeofenceHandler(geo, loc, log)
	h.Register(r.Group(""))
	return r
}

func serve(r *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, target, nil)
	req.RemoteAddr = "203.0.113.7:51234"
	r.ServeHTTP(w, req)
	return w
}

func TestListGeofences(t *testing.T) {
	r := setupRouter(&mockGeofenceService{geofences: []domain.Geofence{zone}}, &mockLocationService{})

	w := serve(r, "/geofences")
	require.Equal(t, http.StatusOK, w.Code)

	var resp []zoneResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, zoneResponse{Latitude: 40.0, Longitude: -75.0, Radius: 1000, Label: "I-95 exit 3"}, resp[0])
}

func TestListGeofences_Empty(t *testing.T) {
	r := setupRouter(&mockGeofenceService{}, &mockLocationService{})

	w := serve(r, "/geofences")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCheckPoint_Inside(t *testing.T) {
	geo := &mockGeofenceService{
		checkFn: func(ctx context.Context, subject string, p domain.GeoPoint) (*domain.CheckResult, error) {
			assert.Equal(t, "dev-1", subject)
			assert.Equal(t, domain.GeoPoint{Lat: 40.0, Lon: -75.0}, p)
			return insideCheck(ctx, subject, p)
		},
	}
	r := setupRouter(geo, &mockLocationService{})

	w := serve(r, "/check?lat=40.0&lon=-75.0&subject=dev-1")
	require.Equal(t, http.StatusOK, w.Code)

	var resp checkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Outside)
	assert.Equal(t, render.AlertMessage, resp.Message)
	assert.Len(t, resp.Zones, 1)
	assert.Equal(t, int64(1715003456), resp.CheckedAt)
}

func TestCheckPoint_DefaultsSubjectToClientIP(t *testing.T) {
	geo := &mockGeofenceService{
		checkFn: func(_ context.Context, subject string, p domain.GeoPoint) (*domain.CheckResult, error) {
			return &domain.CheckResult{Subject: subject, Point: p, Outside: true}, nil
		},
	}
	r := setupRouter(geo, &mockLocationService{})

	w := serve(r, "/check?lat=41.0&lon=-75.0")
	require.Equal(t, http.StatusOK, w.Code)

	var resp checkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "203.0.113.7", resp.Subject)
	assert.True(t, resp.Outside)
	assert.Equal(t, render.SafeMessage, resp.Message)
	assert.NotNil(t, resp.Zones)
}

func TestCheckPoint_BadParams(t *testing.T) {
	r := setupRouter(&mockGeofenceService{}, &mockLocationService{})

	for _, target := range []string{
		"/check",
		"/check?lat=abc&lon=1",
		"/check?lat=1&lon=abc",
		"/check?lat=91&lon=0",
		"/check?lat=0&lon=-181",
		"/check?lat=NaN&lon=0",
	} {
		w := serve(r, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestCheckPoint_ServiceError(t *testing.T) {
	geo := &mockGeofenceService{
		checkFn: func(context.Context, string, domain.GeoPoint) (*domain.CheckResult, error) {
			return nil, errors.New("db error")
		},
	}
	r := setupRouter(geo, &mockLocationService{})

	w := serve(r, "/check?lat=40&lon=-75")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestCheckMe_Success(t *testing.T) {
	loc := &mockLocationService{
		locateFn: func(_ context.Context, ip string) (*domain.UserLocation, error) {
			assert.Equal(t, "203.0.113.7", ip)
			return &domain.UserLocation{Point: domain.GeoPoint{Lat: 40.0, Lon: -75.0}, IP: ip}, nil
		},
	}
	geo := &mockGeofenceService{checkFn: insideCheck}
	r := setupRouter(geo, loc)

	w := serve(r, "/check/me")
	require.Equal(t, http.StatusOK, w.Code)

	var resp checkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "203.0.113.7", resp.Subject)
	assert.False(t, resp.Outside)
}

func TestCheckMe_LocationUnavailable(t *testing.T) {
	loc := &mockLocationService{
		locateFn: func(context.Context, string) (*domain.UserLocation, error) {
			return nil, domain.ErrLocationUnavailable
		},
	}
	r := setupRouter(&mockGeofenceService{}, loc)

	w := serve(r, "/check/me")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestDashboard_Inside(t *testing.T) {
	loc := &mockLocationService{
		locateFn: func(_ context.Context, ip string) (*domain.UserLocation, error) {
			return &domain.UserLocation{Point: domain.GeoPoint{Lat: 40.0, Lon: -75.0}, IP: ip}, nil
		},
	}
	geo := &mockGeofenceService{geofences: []domain.Geofence{zone}, checkFn: insideCheck}
	r := setupRouter(geo, loc)

	w := serve(r, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), render.AlertMessage)
	assert.Contains(t, w.Body.String(), `id="map"`)
}

func TestDashboard_RecordFailureStillShowsVerdict(t *testing.T) {
	loc := &mockLocationService{
		locateFn: func(_ context.Context, ip string) (*domain.UserLocation, error) {
			return &domain.UserLocation{Point: domain.GeoPoint{Lat: 41.0, Lon: -75.0}, IP: ip}, nil
		},
	}
	geo := &mockGeofenceService{
		checkFn: func(context.Context, string, domain.GeoPoint) (*domain.CheckResult, error) {
			return nil, errors.New("db error")
		},
	}
	r := setupRouter(geo, loc)

	w := serve(r, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, geo.evaluateCall)
	assert.Contains(t, w.Body.String(), render.SafeMessage)
}

func TestDashboard_LocationError(t *testing.T) {
	loc := &mockLocationService{
		locateFn: func(context.Context, string) (*domain.UserLocation, error) {
			return nil, fmt.Errorf("%w: Get \"https://ipinfo.io/json\": dial tcp 10.0.0.9:443: i/o timeout", domain.ErrLocationUnavailable)
		},
	}
	r := setupRouter(&mockGeofenceService{}, loc)

	w := serve(r, "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), render.LocationWarning)
	assert.NotContains(t, w.Body.String(), "ipinfo.io")
	assert.NotContains(t, w.Body.String(), "dial tcp")
	assert.NotContains(t, w.Body.String(), render.SafeMessage)
}

func TestMap(t *testing.T) {
	r := setupRouter(&mockGeofenceService{geofences: []domain.Geofence{zone}}, &mockLocationService{})

	w := serve(r, "/map?lat=40&lon=-75")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "L.circle")

	w = serve(r, "/map")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetHistory_Success(t *testing.T) {
	geo := &mockGeofenceService{
		historyFn: func(_ context.Context, q *domain.HistoryQuery) ([]domain.CheckResult, error) {
			assert.Equal(t, "dev-1", q.Subject)
			assert.Equal(t, int64(1715000000), q.Start.Unix())
			assert.Equal(t, int64(1715009999), q.End.Unix())
			return []domain.CheckResult{
				{Subject: "dev-1", Outside: true, CheckedAt: time.Unix(1715000000, 0)},
				{Subject: "dev-1", Outside: false, Zones: []domain.Geofence{zone}, CheckedAt: time.Unix(1715005000, 0)},
			}, nil
		},
	}
	r := setupRouter(geo, &mockLocationService{})

	w := serve(r, "/subjects/dev-1/checks?start=1715000000&end=1715009999")
	require.Equal(t, http.StatusOK, w.Code)

	var resp []checkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	assert.True(t, resp[0].Outside)
	assert.False(t, resp[1].Outside)
}

func TestGetHistory_BadParams(t *testing.T) {
	r := setupRouter(&mockGeofenceService{}, &mockLocationService{})

	for _, target := range []string{
		"/subjects/dev-1/checks?start=abc&end=1715009999",
		"/subjects/dev-1/checks?start=1715000000&end=abc",
		"/subjects/dev-1/checks?start=1715009999&end=1715000000",
	} {
		w := serve(r, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestGetHistory_ServiceError(t *testing.T) {
	geo := &mockGeofenceService{
		historyFn: func(context.Context, *domain.HistoryQuery) ([]domain.CheckResult, error) {
			return nil, errors.New("db error")
		},
	}
	r := setupRouter(geo, &mockLocationService{})

	w := serve(r, "/subjects/dev-1/checks?start=1715000000&end=1715009999")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetLatest(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"found", nil, http.StatusOK},
		{"none", domain.ErrNoHistory, http.StatusNotFound},
		{"db error", errors.New("db error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geo := &mockGeofenceService{
				latestFn: func(_ context.Context, subject string) (*domain.CheckResult, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return &domain.CheckResult{Subject: subject, Outside: true}, nil
				},
			}
			r := setupRouter(geo, &mockLocationService{})

			w := serve(r, "/subjects/dev-1/checks/latest")
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestPublicIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"203.0.113.7", "203.0.113.7"},
		{"8.8.8.8", "8.8.8.8"},
		{"127.0.0.1", ""},
		{"::1", ""},
		{"10.1.2.3", ""},
		{"192.168.0.10", ""},
		{"169.254.1.1", ""},
		{"", ""},
		{"not-an-ip", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, publicIP(tt.in), tt.in)
	}
}
