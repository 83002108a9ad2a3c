// Package csvfile loads geofences from a spreadsheet export with
// Latitude, Longitude and Radius columns.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nandanugg/roadsafe/module/core/domain"
	"github.com/nandanugg/roadsafe/module/core/internal/repository/database"
)

var _ database.GeofenceRepository = (*Loader)(nil)

const (
	colLatitude  = "Latitude"
	colLongitude = "Longitude"
	colRadius    = "Radius"
	colLabel     = "Label"
)

type Loader struct {
	path string
}

func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// List re-reads the file on every call.
func (l *Loader) List(_ context.Context) ([]domain.Geofence, error) {
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open geofences: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Parse(f)
}

// Parse reads geofence rows from r. The header is matched case-insensitively
// and extra columns are ignored.
func Parse(r io.Reader) ([]domain.Geofence, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty file", domain.ErrInvalidGeofence)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))] = i
	}
	for _, col := range []string{colLatitude, colLongitude, colRadius} {
		if _, ok := idx[strings.ToLower(col)]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", domain.ErrInvalidGeofence, col)
		}
	}
	labelIdx, hasLabel := idx[strings.ToLower(colLabel)]

	var fences []domain.Geofence
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// csv.ParseError carries its own line number
			return nil, fmt.Errorf("read row: %w", err)
		}
		if blank(rec) {
			continue
		}
		line, _ := cr.FieldPos(0)

		lat, err := field(rec, idx, colLatitude)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		lon, err := field(rec, idx, colLongitude)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		radius, err := field(rec, idx, colRadius)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		g := domain.Geofence{Center: domain.GeoPoint{Lat: lat, Lon: lon}, Radius: radius}
		if hasLabel && labelIdx < len(rec) {
			g.Label = strings.TrimSpace(rec[labelIdx])
		}
		if err := domain.ValidateGeofence(g); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		fences = append(fences, g)
	}
	return fences, nil
}

func field(rec []string, idx map[string]int, col string) (float64, error) {
	i := idx[strings.ToLower(col)]
	if i >= len(rec) {
		return 0, fmt.Errorf("%w: %s: missing value", domain.ErrInvalidGeofence, col)
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[i]), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", domain.ErrInvalidGeofence, col, err)
	}
	return v, nil
}

func blank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
