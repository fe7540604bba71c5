package worker

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/firewatch/internal/model"
)

// mockResolver implements Resolver
type mockResolver struct {
	calls atomic.Int32
	delay time.Duration
}

func (m *mockResolver) ResolveFor(ctx context.Context, receptor model.Position, forceFail bool) *model.FireFeed {
	m.calls.Add(1)
	time.Sleep(m.delay)
	status := model.StatusLive
	if forceFail {
		status = model.StatusBackup
	}
	return &model.FireFeed{Metadata: model.FeedMetadata{Receptor: receptor, Status: status}}
}

var ncr = []Receptor{
	{Name: "Connaught Place", Position: model.Position{28.6315, 77.2167}},
	{Name: "Gurugram", Position: model.Position{28.4595, 77.0266}},
	{Name: "Noida", Position: model.Position{28.5355, 77.3910}},
	{Name: "Faridabad", Position: model.Position{28.4089, 77.3178}},
	{Name: "Ghaziabad", Position: model.Position{28.6692, 77.4538}},
}

func TestBatchProcessor_ProcessReceptorsKeepsOrder(t *testing.T) {
	resolver := &mockResolver{delay: 5 * time.Millisecond}
	processor := NewBatchProcessor(resolver, 3)

	results := processor.ProcessReceptors(context.Background(), ncr, false)

	if len(results) != len(ncr) {
		t.Fatalf("expected %d results, got %d", len(ncr), len(results))
	}
	for i, res := range results {
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Receptor.Name, res.Error)
		}
		if res.Receptor.Name != ncr[i].Name {
			t.Errorf("result %d: expected %s, got %s", i, ncr[i].Name, res.Receptor.Name)
		}
		if res.Feed == nil || res.Feed.Metadata.Receptor != ncr[i].Position {
			t.Errorf("result %d: feed not resolved for its receptor", i)
		}
	}
	if got := resolver.calls.Load(); got != int32(len(ncr)) {
		t.Errorf("expected %d resolutions, got %d", len(ncr), got)
	}
}

func TestBatchProcessor_ForwardsForceFail(t *testing.T) {
	processor := NewBatchProcessor(&mockResolver{}, 2)

	results := processor.ProcessReceptors(context.Background(), ncr[:2], true)

	for _, res := range results {
		if res.Feed.Metadata.Status != model.StatusBackup {
			t.Errorf("expected backup status, got %q", res.Feed.Metadata.Status)
		}
	}
}

func TestBatchProcessor_Empty(t *testing.T) {
	results := NewBatchProcessor(&mockResolver{}, 2).ProcessReceptors(context.Background(), nil, false)
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestBatchProcessor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewBatchProcessor(&mockResolver{delay: 10 * time.Millisecond}, 1).ProcessReceptors(ctx, ncr, false)

	if len(results) != len(ncr) {
		t.Fatalf("expected %d results, got %d", len(ncr), len(results))
	}
	failed := 0
	for _, res := range results {
		if res.Error != nil {
			failed++
		}
	}
	if failed == 0 {
		t.Error("expected cancelled receptors to carry an error")
	}
}

func TestReadReceptorsFromFile(t *testing.T) {
	content := `# NCR monitoring stations
ITO, 28.6280, 77.2410

Anand Vihar,28.6469,77.3160
ITO,1,1
`
	path := filepath.Join(t.TempDir(), "receptors.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	receptors, err := ReadReceptorsFromFile(path)
	if err != nil {
		t.Fatalf("ReadReceptorsFromFile failed: %v", err)
	}
	if len(receptors) != 2 {
		t.Fatalf("expected 2 receptors, got %d", len(receptors))
	}
	if receptors[0].Name != "ITO" || receptors[0].Position != (model.Position{28.6280, 77.2410}) {
		t.Errorf("unexpected first receptor: %+v", receptors[0])
	}
	if receptors[1].Name != "Anand Vihar" {
		t.Errorf("unexpected second receptor: %+v", receptors[1])
	}
}

func TestReadReceptorsFromFile_Errors(t *testing.T) {
	dir := t.TempDir()

	cases := map[string]string{
		"bad-arity.csv": "ITO,28.6\n",
		"bad-lat.csv":   "ITO,north,77.2\n",
		"range.csv":     "ITO,128.6,77.2\n",
		"empty.csv":     "# nothing here\n",
	}
	for name, content := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := ReadReceptorsFromFile(path); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}

	if _, err := ReadReceptorsFromFile(filepath.Join(dir, "missing.csv")); err == nil {
		t.Error("expected error for missing file")
	}
}
