package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/denizztt/bincard-routes/internal/db"
	"github.com/denizztt/bincard-routes/internal/geo"
	"github.com/denizztt/bincard-routes/internal/models"
)

// Imports the station catalogue from a CSV export of the operator's station
// registry. Columns: id,name,code,lat,lng,city,district (header row required).
func main() {
	godotenv.Load()

	csvPath := flag.String("csv", "", "Path to station CSV file (required)")
	truncate := flag.Bool("truncate", false, "Delete existing stations before import")

	flag.Parse()

	if *csvPath == "" {
		fmt.Println("Usage: import-stations --csv=<path.csv> [--truncate]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	file, err := os.Open(*csvPath)
	if err != nil {
		log.Fatalf("Failed to open CSV: %v", err)
	}
	defer file.Close()

	pool, err := db.GetDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	started := time.Now()
	log.Println("Starting station import...")

	stations, skipped, err := readStations(file)
	if err != nil {
		log.Fatalf("Failed to read CSV: %v", err)
	}
	log.Printf("Parsed %d stations (%d rows skipped)", len(stations), skipped)

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v", err)
	}
	defer tx.Rollback(ctx)

	if *truncate {
		if _, err := tx.Exec(ctx, "DELETE FROM station"); err != nil {
			log.Fatalf("Failed to truncate stations: %v", err)
		}
		log.Println("Existing stations removed")
	}

	for _, s := range stations {
		_, err := tx.Exec(ctx, `
			INSERT INTO station (id, name, code, lat, lng, city, district)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name, code = EXCLUDED.code,
				lat = EXCLUDED.lat, lng = EXCLUDED.lng,
				city = EXCLUDED.city, district = EXCLUDED.district
		`, s.ID, s.Name, s.Code, s.Lat, s.Lng, s.City, s.District)
		if err != nil {
			log.Fatalf("Failed to insert station %d: %v", s.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit import: %v", err)
	}

	log.Printf("Import completed in %v (%d stations)", time.Since(started), len(stations))
}

// readStations parses the CSV, dropping rows with unusable coordinates
func readStations(r io.Reader) ([]models.Station, int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 7

	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("read header: %w", err)
	}
	if header[0] != "id" {
		return nil, 0, fmt.Errorf("unexpected header: %v", header)
	}

	var stations []models.Station
	skipped := 0

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("line %d: %w", line, err)
		}

		id, err := strconv.ParseInt(record[0], 10, 64)
		if err != nil {
			log.Printf("Warning: line %d has invalid id %q, skipping", line, record[0])
			skipped++
			continue
		}
		lat, latErr := strconv.ParseFloat(record[3], 64)
		lng, lngErr := strconv.ParseFloat(record[4], 64)
		if latErr != nil || lngErr != nil || !geo.ValidCoordinate(lat, lng) {
			log.Printf("Warning: station %d has invalid coordinates, skipping", id)
			skipped++
			continue
		}

		stations = append(stations, models.Station{
			ID:       id,
			Name:     record[1],
			Code:     record[2],
			Lat:      lat,
			Lng:      lng,
			City:     record[5],
			District: record[6],
		})
	}

	return stations, skipped, nil
}
