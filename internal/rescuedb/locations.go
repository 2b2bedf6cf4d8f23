package rescuedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rubiojr/fuelrescue/pkg/geo"
)

const (
	locationPrecision = 2
	clusterRadiusKm   = 1.5
)

// LocationLog is a searched location, rounded so nearby searches share a row.
type LocationLog struct {
	ID          int64     `json:"id"`
	Latitude    float64   `json:"lat"`
	Longitude   float64   `json:"lng"`
	Distance    float64   `json:"distance"`
	SearchCount int64     `json:"search_count"`
	SearchTime  time.Time `json:"search_time"`
	LastSearch  time.Time `json:"last_search"`
}

// PopularLocation is a cluster of nearby searches.
type PopularLocation struct {
	Latitude    float64 `json:"lat"`
	Longitude   float64 `json:"lng"`
	SearchCount int64   `json:"weight"`
	Radius      float64 `json:"radius"`
}

// LogSearchLocation records a station search around the given point.
// distance is the search radius in meters.
func (s *Storage) LogSearchLocation(ctx context.Context, latitude, longitude, distance float64) error {
	lat := geo.Round(latitude, locationPrecision)
	lng := geo.Round(longitude, locationPrecision)
	now := formatTime(time.Now())

	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM location_logs
		WHERE latitude = ? AND longitude = ?
		LIMIT 1`, lat, lng).Scan(&id)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO location_logs (latitude, longitude, distance, search_time, last_search)
			VALUES (?, ?, ?, ?, ?)`, lat, lng, distance, now, now)
		if err != nil {
			return fmt.Errorf("error logging search location: %w", err)
		}
	case err != nil:
		return fmt.Errorf("error checking for existing location: %w", err)
	default:
		_, err = s.db.ExecContext(ctx, `
			UPDATE location_logs
			SET search_count = search_count + 1, last_search = ?, distance = ?
			WHERE id = ?`, now, distance, id)
		if err != nil {
			return fmt.Errorf("error updating search location: %w", err)
		}
	}
	return nil
}

// GetLocationLogs returns logged locations, most searched first. A limit of
// 0 returns all of them.
func (s *Storage) GetLocationLogs(ctx context.Context, limit int) ([]LocationLog, error) {
	query := `SELECT id, latitude, longitude, distance, search_count, search_time, last_search
		FROM location_logs
		ORDER BY search_count DESC, id ASC `
	if limit > 0 {
		query += fmt.Sprintf("LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error retrieving location logs: %w", err)
	}
	defer rows.Close()

	var logs []LocationLog
	for rows.Next() {
		var (
			entry                  LocationLog
			searchTime, lastSearch string
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.Latitude,
			&entry.Longitude,
			&entry.Distance,
			&entry.SearchCount,
			&searchTime,
			&lastSearch,
		); err != nil {
			return nil, fmt.Errorf("error scanning location log: %w", err)
		}
		entry.SearchTime = parseTime(searchTime)
		entry.LastSearch = parseTime(lastSearch)
		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return logs, nil
}

// GetPopularLocationHeatmap clusters logged searches that lie within a
// 1.5 km of each other, most searched clusters first.
func (s *Storage) GetPopularLocationHeatmap(ctx context.Context, limit int) ([]PopularLocation, error) {
	logs, err := s.GetLocationLogs(ctx, 0)
	if err != nil {
		return nil, err
	}

	processed := make(map[int64]bool)
	var popular []PopularLocation

	for i, entry := range logs {
		if processed[entry.ID] {
			continue
		}
		processed[entry.ID] = true

		center := geo.Coordinate{Lat: entry.Latitude, Lon: entry.Longitude}
		cluster := PopularLocation{
			Latitude:    entry.Latitude,
			Longitude:   entry.Longitude,
			SearchCount: entry.SearchCount,
			Radius:      entry.Distance,
		}

		for j, other := range logs {
			if i == j || processed[other.ID] {
				continue
			}
			if geo.Distance(center, geo.Coordinate{Lat: other.Latitude, Lon: other.Longitude}) > clusterRadiusKm {
				continue
			}
			processed[other.ID] = true

			total := cluster.SearchCount + other.SearchCount
			cluster.Latitude = (cluster.Latitude*float64(cluster.SearchCount) +
				other.Latitude*float64(other.SearchCount)) / float64(total)
			cluster.Longitude = (cluster.Longitude*float64(cluster.SearchCount) +
				other.Longitude*float64(other.SearchCount)) / float64(total)
			cluster.SearchCount = total
			if other.Distance > cluster.Radius {
				cluster.Radius = other.Distance
			}
		}

		popular = append(popular, cluster)
	}

	sort.SliceStable(popular, func(i, j int) bool {
		return popular[i].SearchCount > popular[j].SearchCount
	})

	if limit > 0 && len(popular) > limit {
		popular = popular[:limit]
	}
	return popular, nil
}
