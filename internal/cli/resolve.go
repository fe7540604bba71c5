package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/ppiankov/firewatch/internal/model"
	"github.com/ppiankov/firewatch/internal/pipeline"
)

var (
	outJSON   string
	outMD     string
	forceFail bool
	noFooter  bool
	lat       float64
	lon       float64
)

// resolveCmd represents the resolve command
var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the current fire feed once",
	Long: `Resolve fetches detections from the first available tier, groups them
into fire zones and estimates the stubble burning share at the receptor.

Example:
  firewatch resolve
  firewatch resolve --json feed.json --md feed.md
  firewatch resolve --force-fail
  firewatch resolve --lat 28.4595 --lon 77.0266`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (optional)")
	resolveCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	resolveCmd.Flags().BoolVar(&forceFail, "force-fail", false, "simulate a live source outage")
	resolveCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown output")
	resolveCmd.Flags().Float64Var(&lat, "lat", 0, "receptor latitude (default: configured receptor)")
	resolveCmd.Flags().Float64Var(&lon, "lon", 0, "receptor longitude (default: configured receptor)")
}

func runResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	receptor, err := receptorFromFlags(cmd, cfg.Receptor)
	if err != nil {
		return err
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if verbose {
		fmt.Fprintf(os.Stderr, "Resolving feed for receptor %s (live: %s)\n\n", receptor, cfg.Live.Provider)
	}

	feed := a.resolver.ResolveFor(ctx, receptor, forceFail)

	renderer := pipeline.NewRenderer(cfg.Output.IncludeFooter && !noFooter)
	if err := renderer.Render(cmd.OutOrStdout(), feed, outJSON, outMD, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}
	return nil
}

// receptorFromFlags honors --lat/--lon only when both were given
func receptorFromFlags(cmd *cobra.Command, def model.Position) (model.Position, error) {
	latSet := cmd.Flags().Changed("lat")
	lonSet := cmd.Flags().Changed("lon")

	switch {
	case !latSet && !lonSet:
		return def, nil
	case latSet != lonSet:
		return model.Position{}, fmt.Errorf("--lat and --lon must be given together")
	}

	pos := model.Position{lat, lon}
	if err := model.ValidatePosition(pos); err != nil {
		return model.Position{}, err
	}
	return pos, nil
}
