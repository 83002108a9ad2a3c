package subscriber

import (
	"context"
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/nandanugg/roadsafe/module/core/domain"
)

const TopicPattern = "/roadsafe/device/+/location"

type geofenceService interface {
	Check(ctx context.Context, subject string, p domain.GeoPoint) (*domain.CheckResult, error)
}

// LocationMessage is the payload devices publish on TopicPattern.
type LocationMessage struct {
	DeviceID  string  `json:"device_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

type LocationSubscriber struct {
	client      mqtt.Client
	geofenceSvc geofenceService
	log         logrus.FieldLogger
}

func NewLocationSubscriber(client mqtt.Client, geofenceSvc geofenceService, log logrus.FieldLogger) *LocationSubscriber {
	return &LocationSubscriber{
		client:      client,
		geofenceSvc: geofenceSvc,
		log:         log,
	}
}

func (s *LocationSubscriber) Start() error {
	token := s.client.Subscribe(TopicPattern, 1, s.handleMessage)
	token.Wait()
	return token.Error()
}

func (s *LocationSubscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	log := s.log.WithField("topic", msg.Topic())

	var raw LocationMessage
	if err := json.Unmarshal(msg.Payload(), &raw); err != nil {
		log.WithError(err).Warn("invalid location message")
		return
	}

	if err := validateLocationMessage(&raw); err != nil {
		log.WithError(err).Warn("location message rejected")
		return
	}

	p := domain.GeoPoint{Lat: raw.Latitude, Lon: raw.Longitude}
	res, err := s.geofenceSvc.Check(context.Background(), raw.DeviceID, p)
	if err != nil {
		log.WithError(err).WithField("device_id", raw.DeviceID).Error("geofence check error")
		return
	}

	log.WithFields(logrus.Fields{
		"device_id": raw.DeviceID,
		"outside":   res.Outside,
		"zones":     len(res.Zones),
	}).Debug("location checked")
}

func validateLocationMessage(msg *LocationMessage) error {
	if msg.DeviceID == "" {
		return fmt.Errorf("device_id: required")
	}
	if err := domain.ValidatePoint(domain.GeoPoint{Lat: msg.Latitude, Lon: msg.Longitude}); err != nil {
		return err
	}
	if msg.Timestamp <= 0 {
		return fmt.Errorf("timestamp: must be positive")
	}
	return nil
}
