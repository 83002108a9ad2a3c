package config

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

func NewRabbitMQ(cfg *Config) (*amqp.Connection, error) {
	return NewRabbitMQWithName(cfg, cfg.RabbitMQName)
}

// NewRabbitMQWithName dials with an explicit connection name, for the
// auxiliary binaries that share a broker with the server.
func NewRabbitMQWithName(cfg *Config, name string) (*amqp.Connection, error) {
	conn, err := amqp.DialConfig(cfg.RabbitMQURL, amqpConfig(name))
	if err != nil {
		return nil, fmt.Errorf("rabbitmq connect: %w", err)
	}
	return conn, nil
}

func amqpConfig(name string) amqp.Config {
	props := amqp.NewConnectionProperties()
	props.SetClientConnectionName(name)
	return amqp.Config{
		Heartbeat:  10 * time.Second,
		Locale:     "en_US",
		Properties: props,
	}
}
