package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nandanugg/roadsafe/config"
	"github.com/nandanugg/roadsafe/module/core"
	"github.com/nandanugg/roadsafe/module/core/domain"
)

type locationMessage struct {
	DeviceID  string  `json:"device_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timestamp int64   `json:"timestamp"`
}

const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func randomDeviceID() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = charset[rand.Intn(len(charset))]
	}
	return "dev-" + string(b)
}

// nearZone returns a point inside g, scattered up to half its radius from the center.
func nearZone(g domain.Geofence) domain.GeoPoint {
	const metersPerDeg = 111320.0
	d := g.Radius / 2 / metersPerDeg
	return domain.GeoPoint{
		Lat: g.Center.Lat + (rand.Float64()*2-1)*d*0.7,
		Lon: g.Center.Lon + (rand.Float64()*2-1)*d*0.7,
	}
}

func randomPoint() domain.GeoPoint {
	return domain.GeoPoint{
		Lat: -90 + rand.Float64()*180,
		Lon: -180 + rand.Float64()*360,
	}
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <interval_seconds>\n", os.Args[0])
		os.Exit(1)
	}

	intervalSec, err := strconv.Atoi(os.Args[1])
	if err != nil || intervalSec <= 0 {
		fmt.Fprintf(os.Stderr, "error: interval must be a positive integer\n")
		os.Exit(1)
	}

	cfg := config.Load()
	log := config.NewLogger(cfg)

	// the CSV is only used to aim some pings at real zones
	geofences, err := core.LoadGeofences(context.Background(), core.SourceCSV, cfg.GeofenceCSV, nil)
	if err != nil {
		log.WithError(err).Warn("no geofences loaded, publishing random points only")
	}

	client, err := config.NewMQTTWithID(cfg, "roadsafe-mock-publisher")
	if err != nil {
		log.WithError(err).Fatal("mqtt")
	}
	defer client.Disconnect(250)

	devicePool := make([]string, 5)
	for i := range devicePool {
		devicePool[i] = randomDeviceID()
	}

	log.Infof("connected to %s, publishing every %ds...", cfg.MQTTBroker, intervalSec)
	log.Infof("device pool: %v", devicePool)

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		id := devicePool[rand.Intn(len(devicePool))]

		p := randomPoint()
		// 30% of pings land inside a known zone
		if len(geofences) > 0 && rand.Float64() < 0.3 {
			p = nearZone(geofences[rand.Intn(len(geofences))])
		}

		payload, err := json.Marshal(locationMessage{
			DeviceID:  id,
			Latitude:  p.Lat,
			Longitude: p.Lon,
			Timestamp: time.Now().Unix(),
		})
		if err != nil {
			log.WithError(err).Error("marshal location")
			continue
		}
		topic := fmt.Sprintf("/roadsafe/device/%s/location", id)

		token := client.Publish(topic, 1, false, payload)
		token.Wait()
		if err := token.Error(); err != nil {
			log.WithError(err).WithField("topic", topic).Error("publish failed")
			continue
		}

		log.WithFields(logrus.Fields{"topic": topic}).Debugf("published %s", payload)
	}
}
