package source

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ppiankov/firewatch/internal/model"
)

//go:embed data/backup_fires.json
var embeddedBackup []byte

// LoadBackup reads the tier-3 dataset from path, or the bundled copy when
// path is empty. An empty dataset is an error.
func LoadBackup(path string) ([]model.FireDetection, error) {
	data := embeddedBackup
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read backup dataset: %w", err)
		}
		data = b
	}
	return ParseBackup(data)
}

// ParseBackup decodes a JSON array of detections
func ParseBackup(data []byte) ([]model.FireDetection, error) {
	var fires []model.FireDetection
	if err := json.Unmarshal(data, &fires); err != nil {
		return nil, fmt.Errorf("decode backup dataset: %w", err)
	}
	if len(fires) == 0 {
		return nil, ErrEmptyBackup
	}
	return fires, nil
}

// BackupSource serves a fixed dataset. It never fails.
type BackupSource struct {
	fires []model.FireDetection
}

// NewBackupSource wraps an already loaded dataset
func NewBackupSource(fires []model.FireDetection) (*BackupSource, error) {
	if len(fires) == 0 {
		return nil, ErrEmptyBackup
	}
	return &BackupSource{fires: fires}, nil
}

// Name implements Source
func (s *BackupSource) Name() string { return "backup" }

// Fetch returns a copy of the dataset
func (s *BackupSource) Fetch(_ context.Context) ([]model.FireDetection, error) {
	return Clone(s.fires), nil
}

// Clone copies a detection slice, including FRP pointers
func Clone(fires []model.FireDetection) []model.FireDetection {
	if fires == nil {
		return nil
	}
	out := make([]model.FireDetection, len(fires))
	for i, f := range fires {
		if f.FRP != nil {
			f.FRP = model.Float(*f.FRP)
		}
		out[i] = f
	}
	return out
}
