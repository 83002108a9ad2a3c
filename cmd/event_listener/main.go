package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/nandanugg/roadsafe/config"
	"github.com/nandanugg/roadsafe/module/core"
)

type zoneAlert struct {
	Subject  string `json:"subject"`
	Event    string `json:"event"`
	Location struct {
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"location"`
	Zones     []json.RawMessage `json:"zones"`
	Timestamp int64             `json:"timestamp"`
}

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg)

	conn, err := config.NewRabbitMQWithName(cfg, "roadsafe-event-listener")
	if err != nil {
		log.WithError(err).Fatal("rabbitmq")
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.WithError(err).Fatal("rabbitmq channel")
	}
	defer func() { _ = ch.Close() }()

	if err := core.DeclareAlertTopology(ch); err != nil {
		log.WithError(err).Fatal("declare topology")
	}

	msgs, err := ch.Consume(core.AlertQueue, "", true, false, false, false, nil)
	if err != nil {
		log.WithError(err).Fatal("consume")
	}

	log.Infof("consuming from queue '%s', waiting for zone alerts...", core.AlertQueue)

	go func() {
		for msg := range msgs {
			var alert zoneAlert
			if err := json.Unmarshal(msg.Body, &alert); err != nil {
				log.WithError(err).Warn("invalid alert payload")
				continue
			}
			log.WithFields(logrus.Fields{
				"event":     alert.Event,
				"subject":   alert.Subject,
				"latitude":  alert.Location.Latitude,
				"longitude": alert.Location.Longitude,
				"zones":     len(alert.Zones),
				"timestamp": alert.Timestamp,
			}).Warn("entered accident-prone zone")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
}
