package core

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gin-gonic/gin"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/nandanugg/roadsafe/module/core/domain"
	handler "github.com/nandanugg/roadsafe/module/core/internal/handler/http"
	"github.com/nandanugg/roadsafe/module/core/internal/handler/subscriber"
	"github.com/nandanugg/roadsafe/module/core/internal/repository/cache"
	"github.com/nandanugg/roadsafe/module/core/internal/repository/database"
	"github.com/nandanugg/roadsafe/module/core/internal/repository/database/postgres"
	"github.com/nandanugg/roadsafe/module/core/internal/repository/geofence/csvfile"
	"github.com/nandanugg/roadsafe/module/core/internal/repository/locator/ipinfo"
	"github.com/nandanugg/roadsafe/module/core/internal/repository/publisher/rabbitmq"
	"github.com/nandanugg/roadsafe/module/core/service"
	"github.com/nandanugg/roadsafe/observability"
)

const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"

	AlertQueue = rabbitmq.QueueName
)

type Options struct {
	IPInfoURL     string
	IPInfoToken   string
	IPInfoTimeout time.Duration
	CacheTTL      time.Duration
	// ValkeyAddr selects the shared location cache; empty keeps it in memory.
	ValkeyAddr string
}

type Module struct {
	LocationSvc *service.LocationService
	GeofenceSvc *service.GeofenceService
	handler     *handler.GeofenceHandler
	subscriber  *subscriber.LocationSubscriber
	closers     []func()
}

// LoadGeofences reads the zone table from the configured source.
func LoadGeofences(ctx context.Context, source, csvPath string, db *sql.DB) ([]domain.Geofence, error) {
	var repo database.GeofenceRepository
	switch source {
	case SourceCSV, "":
		repo = csvfile.NewLoader(csvPath)
	case SourcePostgres:
		repo = postgres.NewGeofenceRepo(db)
	default:
		return nil, fmt.Errorf("unknown geofence source %q", source)
	}
	return repo.List(ctx)
}

// DeclareAlertTopology declares the alert exchange and queue on ch so a
// consumer can start before the server has published anything.
func DeclareAlertTopology(ch *amqp.Channel) error {
	return rabbitmq.Declare(ch)
}

func Build(db *sql.DB, amqpConn *amqp.Connection, mqttClient mqtt.Client, geofences []domain.Geofence, opts Options, metrics *observability.Collector, log logrus.FieldLogger) (*Module, error) {
	checkRepo := postgres.NewCheckRepo(db)

	alertPub, err := rabbitmq.NewAlertPublisher(amqpConn)
	if err != nil {
		return nil, fmt.Errorf("alert publisher: %w", err)
	}

	var (
		locationCache cache.LocationCache = cache.NewMemory()
		closers       []func()
	)
	if opts.ValkeyAddr != "" {
		vc, err := cache.NewValkey(opts.ValkeyAddr)
		if err != nil {
			return nil, fmt.Errorf("location cache: %w", err)
		}
		locationCache = vc
		closers = append(closers, vc.Close)
	}

	provider := ipinfo.NewClient(opts.IPInfoURL, opts.IPInfoToken, opts.IPInfoTimeout)

	metrics.SetGeofences(len(geofences))
	geofenceSvc := service.NewGeofenceService(checkRepo, alertPub, geofences, metrics)
	locationSvc := service.NewLocationService(provider, locationCache, opts.CacheTTL, metrics, log)

	h := handler.NewGeofenceHandler(geofenceSvc, locationSvc, log)
	sub := subscriber.NewLocationSubscriber(mqttClient, geofenceSvc, log)

	return &Module{
		LocationSvc: locationSvc,
		GeofenceSvc: geofenceSvc,
		handler:     h,
		subscriber:  sub,
		closers:     closers,
	}, nil
}

func (m *Module) RegisterRoutes(r *gin.RouterGroup) {
	m.handler.Register(r)
}

func (m *Module) StartSubscribers() error {
	return m.subscriber.Start()
}

func (m *Module) Close() {
	for _, c := range m.closers {
		c()
	}
}
