package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/nandanugg/roadsafe/module/core/domain"
	"github.com/nandanugg/roadsafe/module/core/internal/repository/publisher"
)

var _ publisher.AlertPublisher = (*AlertPublisher)(nil)

const (
	ExchangeName = "roadsafe.events"
	QueueName    = "zone_alerts"
)

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type AlertPublisher struct {
	ch channel
}

func NewAlertPublisher(conn *amqp.Connection) (*AlertPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := Declare(ch); err != nil {
		return nil, err
	}
	return &AlertPublisher{ch: ch}, nil
}

// Declare sets up the fanout exchange and the durable alerts queue bound to it.
func Declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(ExchangeName, "fanout", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(QueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(QueueName, "", ExchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

type AlertMessage struct {
	Subject   string               `json:"subject"`
	Event     domain.ZoneEventType `json:"event"`
	Location  alertLocation        `json:"location"`
	Zones     []alertZone          `json:"zones"`
	Timestamp int64                `json:"timestamp"`
}

type alertLocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type alertZone struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Radius    float64 `json:"radius"`
	Label     string  `json:"label,omitempty"`
}

func toAlertMessage(alert *domain.ZoneAlert) AlertMessage {
	zones := make([]alertZone, len(alert.Zones))
	for i, z := range alert.Zones {
		zones[i] = alertZone{
			Latitude:  z.Center.Lat,
			Longitude: z.Center.Lon,
			Radius:    z.Radius,
			Label:     z.Label,
		}
	}
	return AlertMessage{
		Subject: alert.Subject,
		Event:   alert.Event,
		Location: alertLocation{
			Latitude:  alert.Point.Lat,
			Longitude: alert.Point.Lon,
		},
		Zones:     zones,
		Timestamp: alert.Timestamp,
	}
}

func (p *AlertPublisher) PublishAlert(ctx context.Context, alert *domain.ZoneAlert) error {
	body, err := json.Marshal(toAlertMessage(alert))
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}

	return p.ch.PublishWithContext(ctx, ExchangeName, "", false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}
