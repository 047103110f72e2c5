// Package geo indexes listing pickup coordinates for radius searches.
package geo

import (
	"context"
	"math"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Index stores points by id and answers radius queries.
type Index interface {
	Upsert(ctx context.Context, id uuid.UUID, lat, lng float64) error
	Remove(ctx context.Context, id uuid.UUID) error
	// Nearby returns up to limit ids within radiusKm, nearest first.
	Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]Hit, error)
}

// Hit is one search result.
type Hit struct {
	ID         uuid.UUID
	DistanceKm float64
}

type point struct {
	lat, lng float64
}

// MemoryIndex is an in-process Index for single-instance deployments.
type MemoryIndex struct {
	mu     sync.RWMutex
	points map[uuid.UUID]point
}

func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{points: make(map[uuid.UUID]point)}
}

func (g *MemoryIndex) Upsert(_ context.Context, id uuid.UUID, lat, lng float64) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.points[id] = point{lat: lat, lng: lng}
	return nil
}

func (g *MemoryIndex) Remove(_ context.Context, id uuid.UUID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.points, id)
	return nil
}

// Nearby scans every point; fine for the listing volumes of one city.
func (g *MemoryIndex) Nearby(_ context.Context, lat, lng, radiusKm float64, limit int) ([]Hit, error) {
	g.mu.RLock()
	hits := make([]Hit, 0)
	for id, p := range g.points {
		d := HaversineKm(lat, lng, p.lat, p.lng)
		if d <= radiusKm {
			hits = append(hits, Hit{ID: id, DistanceKm: d})
		}
	}
	g.mu.RUnlock()

	slices.SortFunc(hits, func(a, b Hit) int {
		switch {
		case a.DistanceKm < b.DistanceKm:
			return -1
		case a.DistanceKm > b.DistanceKm:
			return 1
		default:
			return slices.Compare(a.ID[:], b.ID[:])
		}
	})
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// HaversineKm is the great-circle distance in kilometres.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const R = 6371.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
