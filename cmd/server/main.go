package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/nandanugg/roadsafe/config"
	"github.com/nandanugg/roadsafe/module/core"
	"github.com/nandanugg/roadsafe/observability"
)

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg)

	db, err := config.NewPostgres(cfg)
	if err != nil {
		log.WithError(err).Fatal("postgres")
	}
	defer func() { _ = db.Close() }()

	amqpConn, err := config.NewRabbitMQ(cfg)
	if err != nil {
		log.WithError(err).Fatal("rabbitmq")
	}
	defer func() { _ = amqpConn.Close() }()

	mqttClient, err := config.NewMQTT(cfg)
	if err != nil {
		log.WithError(err).Fatal("mqtt")
	}
	defer mqttClient.Disconnect(250)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	geofences, err := core.LoadGeofences(ctx, cfg.GeofenceSource, cfg.GeofenceCSV, db)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("load geofences")
	}
	log.WithFields(logrus.Fields{
		"source": cfg.GeofenceSource,
		"count":  len(geofences),
	}).Info("geofences loaded")

	metrics, err := observability.NewCollector(prometheus.DefaultRegisterer)
	if err != nil {
		log.WithError(err).Fatal("metrics")
	}

	coreModule, err := core.Build(db, amqpConn, mqttClient, geofences, core.Options{
		IPInfoURL:     cfg.IPInfoURL,
		IPInfoToken:   cfg.IPInfoToken,
		IPInfoTimeout: 5 * time.Second,
		CacheTTL:      cfg.LocationCacheTTL,
		ValkeyAddr:    cfg.ValkeyAddr,
	}, metrics, log)
	if err != nil {
		log.WithError(err).Fatal("core module")
	}
	defer coreModule.Close()

	if err := coreModule.StartSubscribers(); err != nil {
		log.WithError(err).Fatal("start subscribers")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	metrics.Register(r)

	health := config.NewHealthChecker(db, amqpConn, mqttClient)
	health.Register(r)

	coreModule.RegisterRoutes(&r.RouterGroup)

	log.Infof("listening on :%s", cfg.HTTPPort)
	if err := r.Run(":" + cfg.HTTPPort); err != nil {
		log.WithError(err).Fatal("server")
	}
}
