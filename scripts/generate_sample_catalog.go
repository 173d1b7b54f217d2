package main

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
)

// generateSampleCatalog writes a small option catalog for local runs.
// Each record is kind,id,name,price; prices are in the shop currency.
func main() {
	dataDir := "data/catalog"

	// Create directory if it doesn't exist
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create directory: %v", err)
	}

	records := [][]string{
		{"kind", "id", "name", "price"},
		{"car_model", "roadster", "Roadster Classic", "42000.00"},
		{"car_model", "coupe-gt", "Coupe GT", "55500.00"},
		{"car_model", "city-hatch", "City Hatch", "21900.00"},
		{"color", "midnight-blue", "Midnight Blue Metallic", "950.00"},
		{"color", "racing-red", "Racing Red", "780.00"},
		{"color", "pearl-white", "Pearl White", "1100.00"},
		{"wheel", "sport-19", "19\" Sport Alloys", "1450.00"},
		{"wheel", "touring-17", "17\" Touring", "620.00"},
		{"interior", "leather-tan", "Tan Leather", "2300.00"},
		{"interior", "alcantara", "Black Alcantara", "1850.00"},
	}

	filePath := filepath.Join(dataDir, "options.csv.gz")
	if err := createCatalogFile(filePath, records); err != nil {
		log.Fatalf("Failed to create %s: %v", filePath, err)
	}

	fmt.Printf("Created %s with %d options\n", filePath, len(records)-1)
}

func createCatalogFile(filePath string, records [][]string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	gzipWriter := gzip.NewWriter(file)
	defer gzipWriter.Close()

	writer := csv.NewWriter(gzipWriter)
	if err := writer.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write records: %w", err)
	}

	return nil
}
