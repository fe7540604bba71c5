package source

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ppiankov/firewatch/internal/model"
)

// Brightness temperature (K) that maps to intensity 1.0
const firmsMaxBrightness = 400.0

// FIRMSSource reads the NASA FIRMS active fire CSV for South Asia and
// keeps confident detections inside the configured region.
type FIRMSSource struct {
	url           string
	region        model.BoundingBox
	minConfidence float64
	fetcher       *Fetcher
	limiter       Waiter
}

// NewFIRMSSource creates a FIRMS source. limiter may be nil.
func NewFIRMSSource(cfg model.LiveConfig, limiter Waiter) *FIRMSSource {
	maxBytes := cfg.MaxBodyBytes
	if maxBytes <= 0 {
		maxBytes = 20_000_000
	}
	return &FIRMSSource{
		url:           cfg.URL,
		region:        cfg.Region,
		minConfidence: cfg.MinConfidence,
		fetcher:       NewFetcher(cfg.Timeout, cfg.UserAgent, maxBytes, cfg.RespectRobots, cfg.HTTPProxy, cfg.HTTPSProxy, cfg.NoProxy),
		limiter:       limiter,
	}
}

// Name implements Source
func (s *FIRMSSource) Name() string { return "firms" }

// Fetch downloads and parses the CSV
func (s *FIRMSSource) Fetch(ctx context.Context) ([]model.FireDetection, error) {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx, s.url); err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
	}

	result, err := s.fetcher.FetchWithRetry(ctx, s.url)
	if err != nil {
		return nil, fmt.Errorf("firms: %w", err)
	}

	return ParseFIRMS(bytes.NewReader(result.Body), s.region, s.minConfidence)
}

// ParseFIRMS decodes a FIRMS CSV document. Columns are located by header
// name; rows that fail to parse are skipped. Only detections inside region
// with confidence strictly above minConfidence are returned.
func ParseFIRMS(r io.Reader, region model.BoundingBox, minConfidence float64) ([]model.FireDetection, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("firms csv: empty document")
		}
		return nil, fmt.Errorf("firms csv header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range []string{"latitude", "longitude", "brightness", "confidence", "frp"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("firms csv: missing column %q", name)
		}
	}

	var fires []model.FireDetection
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				continue
			}
			return nil, fmt.Errorf("firms csv: %w", err)
		}
		if len(row) < len(header) {
			continue
		}

		lat, err1 := strconv.ParseFloat(row[cols["latitude"]], 64)
		lon, err2 := strconv.ParseFloat(row[cols["longitude"]], 64)
		bright, err3 := strconv.ParseFloat(row[cols["brightness"]], 64)
		conf, err4 := strconv.ParseFloat(row[cols["confidence"]], 64)
		frp, err5 := strconv.ParseFloat(row[cols["frp"]], 64)
		if err := errors.Join(err1, err2, err3, err4, err5); err != nil {
			continue
		}

		pos := model.Position{lat, lon}
		if !region.Contains(pos) || conf <= minConfidence {
			continue
		}

		fires = append(fires, model.FireDetection{
			ID:         "firms-" + strconv.Itoa(len(fires)),
			Position:   pos,
			FRP:        model.Float(frp),
			Confidence: model.NumericConfidence(conf),
			Intensity:  bright / firmsMaxBrightness,
		})
	}

	return fires, nil
}
