package rescuedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/rubiojr/fuelrescue/internal/fuelrescue"
)

const (
	dashboardCacheKey    = "dashboard_stats"
	defaultRecentLimit   = 10
	requestSelectColumns = `id, user_email, station_id, station_name, station_lat, station_lng,
		user_lat, user_lng, fuel_type, quantity_liters, notes, status, created_at, updated_at`
)

// DashboardStats summarizes the stored rescue requests.
type DashboardStats struct {
	TotalRequests int                              `json:"total_requests"`
	TotalLiters   int                              `json:"total_liters"`
	ByStatus      map[fuelrescue.RequestStatus]int `json:"by_status"`
	Recent        []*fuelrescue.RescueRequest      `json:"recent"`
}

// SaveRequest inserts the request or replaces a stored one with the same ID.
func (s *Storage) SaveRequest(ctx context.Context, r *fuelrescue.RescueRequest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO rescue_requests (`+requestSelectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.UserEmail, r.StationID, r.StationName,
		r.StationLocation.Lat, r.StationLocation.Lon,
		r.UserLocation.Lat, r.UserLocation.Lon,
		string(r.FuelType), r.QuantityLiters, r.Notes, string(r.Status),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("error saving request: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	s.cache.Delete(dashboardCacheKey)
	s.log.Debug("Saved rescue request", "id", r.ID, "status", r.Status)
	return nil
}

// GetRequest returns the request with the given ID or ErrNotFound.
func (s *Storage) GetRequest(ctx context.Context, id string) (*fuelrescue.RescueRequest, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+requestSelectColumns+" FROM rescue_requests WHERE id = ?", id)
	r, err := scanRequest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("request %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving request: %w", err)
	}
	return r, nil
}

// UpdateRequestStatus moves a stored request to next, enforcing the
// request lifecycle.
func (s *Storage) UpdateRequestStatus(ctx context.Context, id string, next fuelrescue.RequestStatus) (*fuelrescue.RescueRequest, error) {
	r, err := s.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.Transition(next); err != nil {
		return nil, err
	}
	if err := s.SaveRequest(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// RecentRequests returns the newest requests first. A limit of 0 returns all.
func (s *Storage) RecentRequests(ctx context.Context, limit int) ([]*fuelrescue.RescueRequest, error) {
	query := "SELECT " + requestSelectColumns + " FROM rescue_requests ORDER BY created_at DESC "
	if limit > 0 {
		query += fmt.Sprintf("LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error querying requests: %w", err)
	}
	defer rows.Close()

	var requests []*fuelrescue.RescueRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}
	return requests, nil
}

// DashboardStats returns request totals, cached until the next write.
func (s *Storage) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	if cached, found := s.cache.Get(dashboardCacheKey); found {
		s.log.Debug("Using cached dashboard stats")
		return cached.(*DashboardStats), nil
	}

	stats := &DashboardStats{ByStatus: make(map[fuelrescue.RequestStatus]int)}
	rows, err := s.db.QueryContext(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(quantity_liters), 0)
		FROM rescue_requests
		GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("error querying request totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			count  int
			liters int
		)
		if err := rows.Scan(&status, &count, &liters); err != nil {
			return nil, fmt.Errorf("error scanning request totals: %w", err)
		}
		stats.ByStatus[fuelrescue.RequestStatus(status)] = count
		stats.TotalRequests += count
		if fuelrescue.RequestStatus(status) != fuelrescue.RequestCancelled {
			stats.TotalLiters += liters
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration: %w", err)
	}

	stats.Recent, err = s.RecentRequests(ctx, defaultRecentLimit)
	if err != nil {
		return nil, err
	}

	s.cache.Set(dashboardCacheKey, stats, cache.DefaultExpiration)
	return stats, nil
}

// DeleteOldRequests removes completed and cancelled requests created more
// than daysOld days ago, plus location logs not searched since then.
func (s *Storage) DeleteOldRequests(ctx context.Context, daysOld int) (int64, error) {
	cutoff := formatTime(time.Now().AddDate(0, 0, -daysOld))
	s.log.Info("Starting cleanup of old records", "cutoff", cutoff)

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM rescue_requests
		WHERE created_at < ? AND status IN (?, ?)`,
		cutoff, string(fuelrescue.RequestCompleted), string(fuelrescue.RequestCancelled))
	if err != nil {
		return 0, fmt.Errorf("error deleting old requests: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error counting deleted requests: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM location_logs WHERE last_search < ?", cutoff); err != nil {
		return deleted, fmt.Errorf("error deleting old location logs: %w", err)
	}

	s.cache.Delete(dashboardCacheKey)
	s.log.Info("Cleanup finished", "requests_deleted", deleted)
	return deleted, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*fuelrescue.RescueRequest, error) {
	var (
		r                  fuelrescue.RescueRequest
		userEmail, notes   sql.NullString
		fuelType, status   string
		createdAt, updated string
	)
	err := row.Scan(
		&r.ID, &userEmail, &r.StationID, &r.StationName,
		&r.StationLocation.Lat, &r.StationLocation.Lon,
		&r.UserLocation.Lat, &r.UserLocation.Lon,
		&fuelType, &r.QuantityLiters, &notes, &status,
		&createdAt, &updated,
	)
	if err != nil {
		return nil, err
	}
	r.UserEmail = userEmail.String
	r.Notes = notes.String
	r.FuelType = fuelrescue.FuelType(fuelType)
	r.Status = fuelrescue.RequestStatus(status)
	r.CreatedAt = parseTime(createdAt)
	r.UpdatedAt = parseTime(updated)
	return &r, nil
}
