package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/firewatch/internal/model"
)

// ErrCacheMiss is returned when no usable cache envelope exists
var ErrCacheMiss = errors.New("cache miss")

// envelope is the persisted tier-2 record
type envelope struct {
	Data      []model.FireDetection `json:"data"`
	Timestamp string                `json:"timestamp"`
}

// EncodeEnvelope serializes a detection batch stamped with at
func EncodeEnvelope(fires []model.FireDetection, at time.Time) ([]byte, error) {
	if fires == nil {
		fires = []model.FireDetection{}
	}
	b, err := json.Marshal(envelope{
		Data:      fires,
		Timestamp: at.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return b, nil
}

// DecodeEnvelope parses an envelope. A missing data array or an
// unparseable timestamp is an error, same as broken JSON.
func DecodeEnvelope(b []byte) ([]model.FireDetection, time.Time, error) {
	var raw struct {
		Data      *[]model.FireDetection `json:"data"`
		Timestamp string                 `json:"timestamp"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, time.Time{}, fmt.Errorf("decode envelope: %w", err)
	}
	if raw.Data == nil {
		return nil, time.Time{}, fmt.Errorf("decode envelope: missing data")
	}
	ts, err := time.Parse(time.RFC3339, raw.Timestamp)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("decode envelope timestamp: %w", err)
	}
	return *raw.Data, ts, nil
}
