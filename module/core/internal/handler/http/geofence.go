package http

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nandanugg/roadsafe/module/core/domain"
	"github.com/nandanugg/roadsafe/module/core/render"
)

type geofenceService interface {
	Geofences() []domain.Geofence
	Evaluate(subject string, p domain.GeoPoint) *domain.CheckResult
	Check(ctx context.Context, subject string, p domain.GeoPoint) (*domain.CheckResult, error)
	Latest(ctx context.Context, subject string) (*domain.CheckResult, error)
	History(ctx context.Context, query *domain.HistoryQuery) ([]domain.CheckResult, error)
}

type locationService interface {
	Locate(ctx context.Context, ip string) (*domain.UserLocation, error)
}

const selfSubject = "self"

type zoneResponse struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
	Label     string  `json:"label,omitempty"`
}

type checkResponse struct {
	Subject   string         `json:"subject"`
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Outside   bool           `json:"outside"`
	Message   string         `json:"message"`
	Zones     []zoneResponse `json:"zones"`
	CheckedAt int64          `json:"checked_at"`
}

type GeofenceHandler struct {
	geofenceSvc geofenceService
	locationSvc locationService
	log         logrus.FieldLogger
}

func NewGeofenceHandler(geofenceSvc geofenceService, locationSvc locationService, log logrus.FieldLogger) *GeofenceHandler {
	return &GeofenceHandler{
		geofenceSvc: geofenceSvc,
		locationSvc: locationSvc,
		log:         log,
	}
}

func (h *GeofenceHandler) Register(r *gin.RouterGroup) {
	r.GET("/", h.Dashboard)
	r.GET("/map", h.Map)
	r.GET("/geofences", h.ListGeofences)
	r.GET("/check", h.CheckPoint)
	r.GET("/check/me", h.CheckMe)
	r.GET("/subjects/:subject_id/checks", h.GetHistory)
	r.GET("/subjects/:subject_id/checks/latest", h.GetLatest)
}

func (h *GeofenceHandler) Dashboard(c *gin.Context) {
	ctx := c.Request.Context()
	ip := publicIP(c.ClientIP())

	var data render.DashboardData
	loc, err := h.locationSvc.Locate(ctx, ip)
	if err != nil {
		h.log.WithError(err).WithField("client_ip", c.ClientIP()).Warn("dashboard location lookup failed")
		data.Warning = render.LocationWarning
	} else {
		data.Location = loc
		data.Map = render.NewMapData(loc.Point, h.geofenceSvc.Geofences())

		res, err := h.geofenceSvc.Check(ctx, subjectFor(loc), loc.Point)
		if err != nil {
			h.log.WithError(err).WithField("subject", subjectFor(loc)).Error("dashboard check not recorded")
			res = h.geofenceSvc.Evaluate(subjectFor(loc), loc.Point)
		}
		data.Result = res
	}

	h.html(c, func(buf *bytes.Buffer) error { return render.Dashboard(buf, data) })
}

func (h *GeofenceHandler) Map(c *gin.Context) {
	p, err := pointFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data := render.NewMapData(p, h.geofenceSvc.Geofences())
	h.html(c, func(buf *bytes.Buffer) error { return render.Map(buf, data) })
}

func (h *GeofenceHandler) ListGeofences(c *gin.Context) {
	c.JSON(http.StatusOK, toZoneResponses(h.geofenceSvc.Geofences()))
}

func (h *GeofenceHandler) CheckPoint(c *gin.Context) {
	p, err := pointFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	subject := c.Query("subject")
	if subject == "" {
		subject = c.ClientIP()
	}

	res, err := h.geofenceSvc.Check(c.Request.Context(), subject, p)
	if err != nil {
		h.log.WithError(err).WithField("subject", subject).Error("check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check location"})
		return
	}
	c.JSON(http.StatusOK, toCheckResponse(res))
}

func (h *GeofenceHandler) CheckMe(c *gin.Context) {
	loc, err := h.locationSvc.Locate(c.Request.Context(), publicIP(c.ClientIP()))
	if err != nil {
		h.log.WithError(err).WithField("client_ip", c.ClientIP()).Warn("location lookup failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "location unavailable"})
		return
	}

	res, err := h.geofenceSvc.Check(c.Request.Context(), subjectFor(loc), loc.Point)
	if err != nil {
		h.log.WithError(err).WithField("subject", subjectFor(loc)).Error("check failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check location"})
		return
	}
	c.JSON(http.StatusOK, toCheckResponse(res))
}

func (h *GeofenceHandler) GetHistory(c *gin.Context) {
	subject := c.Param("subject_id")

	start, err := strconv.ParseInt(c.Query("start"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid start parameter"})
		return
	}

	end, err := strconv.ParseInt(c.Query("end"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end parameter"})
		return
	}
	if end < start {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must not be before start"})
		return
	}

	checks, err := h.geofenceSvc.History(c.Request.Context(), &domain.HistoryQuery{
		Subject: subject,
		Start:   time.Unix(start, 0),
		End:     time.Unix(end, 0),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch history"})
		return
	}

	results := make([]checkResponse, len(checks))
	for i := range checks {
		results[i] = toCheckResponse(&checks[i])
	}
	c.JSON(http.StatusOK, results)
}

func (h *GeofenceHandler) GetLatest(c *gin.Context) {
	res, err := h.geofenceSvc.Latest(c.Request.Context(), c.Param("subject_id"))
	if errors.Is(err, domain.ErrNoHistory) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no checks for subject"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch latest check"})
		return
	}
	c.JSON(http.StatusOK, toCheckResponse(res))
}

func (h *GeofenceHandler) html(c *gin.Context, write func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		h.log.WithError(err).Error("render page")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render page"})
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func pointFromQuery(c *gin.Context) (domain.GeoPoint, error) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		return domain.GeoPoint{}, errors.New("invalid lat parameter")
	}
	lon, err := strconv.ParseFloat(c.Query("lon"), 64)
	if err != nil {
		return domain.GeoPoint{}, errors.New("invalid lon parameter")
	}
	p := domain.GeoPoint{Lat: lat, Lon: lon}
	if err := domain.ValidatePoint(p); err != nil {
		return domain.GeoPoint{}, err
	}
	return p, nil
}

// publicIP returns ip when the location provider can resolve it, or "" so the
// provider falls back to the server's own address.
func publicIP(ip string) string {
	parsed := net.ParseIP(ip)
	if parsed == nil || parsed.IsLoopback() || parsed.IsPrivate() ||
		parsed.IsUnspecified() || parsed.IsLinkLocalUnicast() {
		return ""
	}
	return ip
}

func subjectFor(loc *domain.UserLocation) string {
	if loc.IP != "" {
		return loc.IP
	}
	return selfSubject
}

func toZoneResponses(zones []domain.Geofence) []zoneResponse {
	out := make([]zoneResponse, len(zones))
	for i, z := range zones {
		out[i] = zoneResponse{
			Latitude:  z.Center.Lat,
			Longitude: z.Center.Lon,
			Radius:    z.Radius,
			Label:     z.Label,
		}
	}
	return out
}

func toCheckResponse(res *domain.CheckResult) checkResponse {
	msg := render.SafeMessage
	if !res.Outside {
		msg = render.AlertMessage
	}
	return checkResponse{
		Subject:   res.Subject,
		Latitude:  res.Point.Lat,
		Longitude: res.Point.Lon,
		Outside:   res.Outside,
		Message:   msg,
		Zones:     toZoneResponses(res.Zones),
		CheckedAt: res.CheckedAt.Unix(),
	}
}
