package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/ppiankov/firewatch/internal/model"
)

// Resolver produces a feed for a receptor
type Resolver interface {
	ResolveFor(ctx context.Context, receptor model.Position, forceFail bool) *model.FireFeed
}

// Receptor is a named point where pollution impact is assessed
type Receptor struct {
	Name     string
	Position model.Position
}

// ResolveJob resolves the feed for one receptor
type ResolveJob struct {
	Index     int
	Receptor  Receptor
	ForceFail bool
	Resolver  Resolver
}

// Execute implements Job
func (j *ResolveJob) Execute(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return &ReceptorResult{Index: j.Index, Receptor: j.Receptor, Error: err}
	}
	return &ReceptorResult{
		Index:    j.Index,
		Receptor: j.Receptor,
		Feed:     j.Resolver.ResolveFor(ctx, j.Receptor.Position, j.ForceFail),
	}
}

// ReceptorResult is the outcome of a ResolveJob
type ReceptorResult struct {
	Index    int
	Receptor Receptor
	Feed     *model.FireFeed
	Error    error
}

// GetError implements Result
func (r *ReceptorResult) GetError() error {
	return r.Error
}

// BatchProcessor resolves many receptors concurrently
type BatchProcessor struct {
	resolver    Resolver
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(resolver Resolver, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		resolver:    resolver,
		concurrency: concurrency,
	}
}

// ProcessReceptors resolves every receptor and returns results in input order
func (b *BatchProcessor) ProcessReceptors(ctx context.Context, receptors []Receptor, forceFail bool) []*ReceptorResult {
	if len(receptors) == 0 {
		return []*ReceptorResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	go func() {
		for i, r := range receptors {
			job := &ResolveJob{Index: i, Receptor: r, ForceFail: forceFail, Resolver: b.resolver}
			if !pool.Submit(job) {
				return
			}
		}
	}()

	out := make([]*ReceptorResult, len(receptors))
collect:
	for n := 0; n < len(receptors); n++ {
		select {
		case result := <-pool.Results():
			rr := result.(*ReceptorResult)
			out[rr.Index] = rr
		case <-ctx.Done():
			break collect
		}
	}
	pool.Shutdown()

	for i, rr := range out {
		if rr == nil {
			out[i] = &ReceptorResult{Index: i, Receptor: receptors[i], Error: ctx.Err()}
		}
	}
	return out
}

// ProcessFile reads receptors from a file and resolves them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string, forceFail bool) ([]*ReceptorResult, error) {
	receptors, err := ReadReceptorsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read receptors: %w", err)
	}
	return b.ProcessReceptors(ctx, receptors, forceFail), nil
}

// ReadReceptorsFromFile reads "name,lat,lon" lines. Blank lines and
// lines starting with # are skipped; repeated names keep the first entry.
func ReadReceptorsFromFile(filePath string) ([]Receptor, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var receptors []Receptor
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		r, err := ParseReceptor(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if seen[r.Name] {
			continue
		}
		seen[r.Name] = true
		receptors = append(receptors, r)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}
	if len(receptors) == 0 {
		return nil, fmt.Errorf("no receptors in %s", filePath)
	}

	return receptors, nil
}

// ParseReceptor parses a single "name,lat,lon" line
func ParseReceptor(line string) (Receptor, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 3 {
		return Receptor{}, fmt.Errorf("want name,lat,lon, got %q", line)
	}

	name := strings.TrimSpace(parts[0])
	if name == "" {
		return Receptor{}, fmt.Errorf("empty receptor name")
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return Receptor{}, fmt.Errorf("latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[2]), 64)
	if err != nil {
		return Receptor{}, fmt.Errorf("longitude: %w", err)
	}

	pos := model.Position{lat, lon}
	if err := model.ValidatePosition(pos); err != nil {
		return Receptor{}, err
	}
	return Receptor{Name: name, Position: pos}, nil
}
