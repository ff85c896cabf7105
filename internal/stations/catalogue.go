package stations

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/denizztt/bincard-routes/internal/geo"
	"github.com/denizztt/bincard-routes/internal/models"
)

// Catalogue holds the station universe in memory. It is read-only from the
// planning core's perspective: refreshes swap the whole map under the write
// lock, never partial mutation.
type Catalogue struct {
	mu       sync.RWMutex
	stations map[int64]models.Station
	ordered  []models.Station // id order, for stable scans
	loaded   bool
}

var (
	globalCatalogue     *Catalogue
	globalCatalogueOnce sync.Once
)

// GetCatalogue returns the singleton station catalogue
func GetCatalogue() *Catalogue {
	globalCatalogueOnce.Do(func() {
		globalCatalogue = &Catalogue{
			stations: make(map[int64]models.Station),
		}
	})
	return globalCatalogue
}

// LoadFromDB refreshes the catalogue wholesale from PostgreSQL
func (c *Catalogue) LoadFromDB(ctx context.Context, db *pgxpool.Pool) error {
	startTime := time.Now()
	log.Println("Loading station catalogue into memory...")

	rows, err := db.Query(ctx, `
		SELECT id, name, COALESCE(code, ''), lat, lng, COALESCE(city, ''), COALESCE(district, ''), created_at
		FROM station
		ORDER BY id
	`)
	if err != nil {
		return fmt.Errorf("failed to load stations: %w", err)
	}
	defer rows.Close()

	stations := make(map[int64]models.Station)
	var ordered []models.Station

	for rows.Next() {
		var s models.Station
		if err := rows.Scan(&s.ID, &s.Name, &s.Code, &s.Lat, &s.Lng, &s.City, &s.District, &s.CreatedAt); err != nil {
			log.Printf("Warning: failed to scan station: %v", err)
			continue
		}
		if !geo.ValidCoordinate(s.Lat, s.Lng) {
			log.Printf("Warning: station %d has invalid coordinates (%f, %f), skipping", s.ID, s.Lat, s.Lng)
			continue
		}
		stations[s.ID] = s
		ordered = append(ordered, s)
	}

	c.mu.Lock()
	c.stations = stations
	c.ordered = ordered
	c.loaded = true
	c.mu.Unlock()

	log.Printf("Station catalogue loaded in %v (%d stations)", time.Since(startTime), len(stations))
	return nil
}

// IsLoaded returns true if the catalogue has been loaded
func (c *Catalogue) IsLoaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.loaded
}

// ByID returns a station by id
func (c *Catalogue) ByID(id int64) (models.Station, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.stations[id]
	return s, ok
}

// Resolve maps ordered station ids onto station values, failing on the first
// unknown id
func (c *Catalogue) Resolve(ids []int64) ([]models.Station, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	resolved := make([]models.Station, 0, len(ids))
	for _, id := range ids {
		s, ok := c.stations[id]
		if !ok {
			return nil, fmt.Errorf("unknown station id %d", id)
		}
		resolved = append(resolved, s)
	}
	return resolved, nil
}

// All returns every station in id order
func (c *Catalogue) All() []models.Station {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.Station{}, c.ordered...)
}

// Nearest returns the station closest to the point, nil on an empty catalogue
func (c *Catalogue) Nearest(lat, lng float64) *models.Station {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return geo.NearestStation(lat, lng, c.ordered)
}

// Nearby returns up to limit stations within radiusKm of the point, closest
// first
func (c *Catalogue) Nearby(lat, lng, radiusKm float64, limit int) []models.Station {
	c.mu.RLock()
	defer c.mu.RUnlock()

	type candidate struct {
		station models.Station
		dist    float64
	}

	var candidates []candidate
	for _, s := range c.ordered {
		d := geo.DistanceKm(lat, lng, s.Lat, s.Lng)
		if d <= radiusKm {
			candidates = append(candidates, candidate{station: s, dist: d})
		}
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].dist < candidates[j].dist
	})

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	result := make([]models.Station, len(candidates))
	for i, cand := range candidates {
		result[i] = cand.station
	}
	return result
}

// Search returns stations whose name, city or district contains the query,
// case-insensitive, in id order
func (c *Catalogue) Search(query string, limit int) []models.Station {
	c.mu.RLock()
	defer c.mu.RUnlock()

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []models.Station{}
	}

	var result []models.Station
	for _, s := range c.ordered {
		if strings.Contains(strings.ToLower(s.Name), q) ||
			strings.Contains(strings.ToLower(s.City), q) ||
			strings.Contains(strings.ToLower(s.District), q) {
			result = append(result, s)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	if result == nil {
		result = []models.Station{}
	}
	return result
}

// seed replaces the catalogue contents directly, bypassing the database.
// Used by tests.
func (c *Catalogue) seed(stations []models.Station) {
	byID := make(map[int64]models.Station, len(stations))
	ordered := append([]models.Station{}, stations...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })
	for _, s := range ordered {
		byID[s.ID] = s
	}

	c.mu.Lock()
	c.stations = byID
	c.ordered = ordered
	c.loaded = true
	c.mu.Unlock()
}
