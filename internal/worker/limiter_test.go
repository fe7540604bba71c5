package worker

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	if l := NewLimiter(10, 5); l.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", l.defaultBurst)
	}
	if l := NewLimiter(10, -1); l.defaultBurst != 1 {
		t.Errorf("expected burst 1 for negative input, got %d", l.defaultBurst)
	}
}

// waitBriefly reports whether a token for rawURL becomes available within 20ms
func waitBriefly(l *Limiter, rawURL string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	return l.Wait(ctx, rawURL) == nil
}

func TestLimiter_PerHost(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	feed := "https://firms.modaps.eosdis.nasa.gov/data/active_fire/x.csv"

	if err := limiter.Wait(context.Background(), feed); err != nil {
		t.Fatalf("first wait failed: %v", err)
	}
	if waitBriefly(limiter, feed) {
		t.Error("expected second request to the same host to be throttled")
	}
	if !waitBriefly(limiter, "https://mirror.example.org/x.csv") {
		t.Error("expected a different host to have its own budget")
	}
}

func TestLimiter_WaitHonorsContext(t *testing.T) {
	limiter := NewLimiter(0.01, 1)
	url := "http://slow.example.com/feed.csv"
	_ = limiter.Wait(context.Background(), url)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := limiter.Wait(ctx, url); err == nil {
		t.Error("expected wait to fail once the context is cancelled")
	}
}

func TestLimiter_ZeroRateIsUnlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 10; i++ {
		if !waitBriefly(limiter, "http://example.com") {
			t.Fatalf("request %d throttled with limiting disabled", i)
		}
	}
}

func TestLimiter_RejectsURLWithoutHost(t *testing.T) {
	limiter := NewLimiter(1, 1)
	if err := limiter.Wait(context.Background(), "/relative/path"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestExtractHost(t *testing.T) {
	host, err := extractHost("http://example.com:8080/foo")
	if err != nil {
		t.Fatalf("extractHost failed: %v", err)
	}
	if host != "example.com:8080" {
		t.Errorf("expected example.com:8080, got %s", host)
	}

	if _, err := extractHost("::invalid"); err == nil {
		t.Error("expected error for invalid URL")
	}
	if _, err := extractHost("/relative/path"); err == nil {
		t.Error("expected error for URL without host")
	}
}
