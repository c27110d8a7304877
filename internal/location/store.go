// Package location tracks driver positions in a Redis geo index.
package location

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const driverLocationKey = "drivers:locations"

// DriverLocation represents a driver's position.
type DriverLocation struct {
	DriverID string  `json:"driver_id"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

// Validate checks the coordinates are within WGS84 bounds.
func (l DriverLocation) Validate() error {
	if l.DriverID == "" {
		return fmt.Errorf("driver id is required")
	}
	if l.Lat < -90 || l.Lat > 90 {
		return fmt.Errorf("latitude %f out of range", l.Lat)
	}
	if l.Lng < -180 || l.Lng > 180 {
		return fmt.Errorf("longitude %f out of range", l.Lng)
	}
	return nil
}

// Store handles driver location operations in Redis.
type Store struct {
	client *redis.Client
}

// NewStore creates a new location Store.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// UpdateLocation stores a driver's location using GEOADD.
func (s *Store) UpdateLocation(ctx context.Context, loc DriverLocation) error {
	if err := loc.Validate(); err != nil {
		return err
	}
	return s.client.GeoAdd(ctx, driverLocationKey, &redis.GeoLocation{
		Name:      loc.DriverID,
		Longitude: loc.Lng,
		Latitude:  loc.Lat,
	}).Err()
}

// FindNearbyDrivers returns drivers within the given radius in kilometers,
// closest first.
func (s *Store) FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]DriverLocation, error) {
	results, err := s.client.GeoRadius(ctx, driverLocationKey, lng, lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("geo radius query failed: %w", err)
	}

	locations := make([]DriverLocation, 0, len(results))
	for _, r := range results {
		locations = append(locations, DriverLocation{
			DriverID: r.Name,
			Lat:      r.Latitude,
			Lng:      r.Longitude,
		})
	}
	return locations, nil
}

// RemoveLocation removes a driver from the geo index.
func (s *Store) RemoveLocation(ctx context.Context, driverID string) error {
	return s.client.ZRem(ctx, driverLocationKey, driverID).Err()
}
