package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ppiankov/firewatch/internal/model"
)

// Renderer writes feeds as JSON, Markdown and a terminal summary
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a new renderer
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the feed as indented JSON
func (r *Renderer) RenderJSON(feed *model.FireFeed, path string) error {
	data, err := json.MarshalIndent(feed, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal feed: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderMarkdown writes a human readable report
func (r *Renderer) RenderMarkdown(feed *model.FireFeed, path string) error {
	if err := os.WriteFile(path, []byte(r.Markdown(feed)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Markdown formats the feed as a Markdown document
func (r *Renderer) Markdown(feed *model.FireFeed) string {
	var b strings.Builder
	m := feed.Metadata

	b.WriteString("# Stubble Fire Feed\n\n")
	fmt.Fprintf(&b, "- **Status:** %s\n", m.Status)
	fmt.Fprintf(&b, "- **Source:** %s\n", m.Source)
	fmt.Fprintf(&b, "- **Generated:** %s\n", m.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "- **Receptor:** %s\n", m.Receptor)
	if m.CachedAt != nil {
		fmt.Fprintf(&b, "- **Cached at:** %s\n", m.CachedAt.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(&b, "- **Feed ID:** `%s`\n\n", m.ID)

	a := feed.Attribution
	b.WriteString("## Attribution\n\n")
	fmt.Fprintf(&b, "Stubble burning share: **%d%%** (%s), from %d detections.\n\n", a.StubblePercentage, a.Severity, a.TotalFireCount)

	b.WriteString("## Fire Zones\n\n")
	if len(feed.Clusters) == 0 {
		b.WriteString("No active zones.\n\n")
	} else {
		b.WriteString("| Zone | Center | Fires | Total FRP (MW) | Avg confidence | Severity |\n")
		b.WriteString("|---|---|---:|---:|---:|---|\n")
		for _, c := range feed.Clusters {
			fmt.Fprintf(&b, "| %s | %s | %d | %.0f | %.0f | %s |\n", c.ID, c.Center, c.FireCount, c.TotalFRP, c.AvgConfidence, c.Severity)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Most Impactful Fires\n\n")
	top := feed.ImpactfulFires
	if len(top) > 10 {
		top = top[:10]
	}
	if len(top) == 0 || top[0].ImpactScore == 0 {
		b.WriteString("No upwind detections.\n\n")
	} else {
		b.WriteString("| ID | Position | FRP (MW) | Confidence | Impact |\n")
		b.WriteString("|---|---|---:|---|---:|\n")
		for _, f := range top {
			if f.ImpactScore == 0 {
				break
			}
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %.1f |\n", f.ID, f.Position, formatFRP(f), f.Confidence, f.ImpactScore)
		}
		b.WriteString("\n")
	}

	if r.includeFooter {
		b.WriteString("---\n\n")
		b.WriteString("_Attribution assumes a fixed northwest wind and is an estimate, not a measurement._\n")
	}

	return b.String()
}

// RenderSummary prints a short summary for the terminal
func (r *Renderer) RenderSummary(w io.Writer, feed *model.FireFeed) {
	m := feed.Metadata
	fmt.Fprintf(w, "🛰️  %s\n", m.Status)
	fmt.Fprintf(w, "   Fires: %d   Zones: %d   Receptor: %s\n", len(feed.AllFires), len(feed.Clusters), m.Receptor)
	fmt.Fprintf(w, "   Stubble share: %d%% (%s)\n", feed.Attribution.StubblePercentage, feed.Attribution.Severity)
	if len(feed.Clusters) > 0 {
		c := feed.Clusters[0]
		fmt.Fprintf(w, "   Largest zone: %s at %s, %.0f MW across %d fires (%s)\n", c.ID, c.Center, c.TotalFRP, c.FireCount, c.Severity)
	}
}

// Render writes the requested files and prints the summary to w
func (r *Renderer) Render(w io.Writer, feed *model.FireFeed, jsonPath, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := r.RenderJSON(feed, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Fprintf(w, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := r.RenderMarkdown(feed, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Fprintf(w, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	r.RenderSummary(w, feed)
	return nil
}

func formatFRP(f model.FireDetection) string {
	if f.FRP == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.1f", *f.FRP)
}
