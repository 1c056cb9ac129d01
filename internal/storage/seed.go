package storage

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/regalo/backend/internal/models"
)

// SeedData is the fixture file loaded into the in-memory stores when the
// server runs with STORE_BACKEND=memory, so local development starts with a
// populated network.
type SeedData struct {
	Users       []*models.User       `json:"users"`
	Connections []*models.Connection `json:"connections"`
}

// LoadSeed reads a seed fixture. A missing file is not an error; the stores
// just start empty.
func LoadSeed(path string) (*SeedData, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &SeedData{}, nil
		}
		return nil, err
	}
	defer file.Close()

	var data SeedData
	if err := json.NewDecoder(file).Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to decode seed file %s: %w", path, err)
	}
	return &data, nil
}

// saveSeed writes a fixture atomically (temp file + rename) so a crash never
// leaves a truncated file behind.
func saveSeed(path string, data *SeedData) error {
	tempFile := path + ".tmp"
	file, err := os.Create(tempFile)
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		file.Close()
		os.Remove(tempFile)
		return err
	}
	if err := file.Close(); err != nil {
		os.Remove(tempFile)
		return err
	}

	return os.Rename(tempFile, path)
}
