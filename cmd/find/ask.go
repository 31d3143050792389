package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/linzh0131/find/internal/api"
	"github.com/linzh0131/find/internal/config"
	"github.com/linzh0131/find/internal/locate"
	"github.com/linzh0131/find/internal/model"
	"github.com/linzh0131/find/internal/pipeline"
	"github.com/linzh0131/find/internal/session"
)

// runAsk runs the interpret→search pipeline once against a running backend
// and prints the ranked results.
func runAsk(args []string) error {
	var env string
	var lat, lng float64
	var timeout time.Duration

	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	fs.StringVar(&env, "env", config.GetEnv(), "Config environment (local, dev, prod)")
	fs.Float64Var(&lat, "lat", 0, "Pin latitude (default: config, then IP lookup)")
	fs.Float64Var(&lng, "lng", 0, "Pin longitude")
	fs.DurationVar(&timeout, "timeout", 30*time.Second, "Overall request timeout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: find ask [flags] <query...>\n\nFlags:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  find ask coffee within 500m, rating first\n")
		fmt.Fprintf(os.Stderr, "  find ask -lat 25.0330 -lng 121.5654 ramen nearby\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	text := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if text == "" {
		fs.Usage()
		return fmt.Errorf("a query is required")
	}

	cfg, err := config.Load(env)
	if err != nil {
		return err
	}
	if lat == 0 && lng == 0 {
		lat, lng = cfg.Client.Lat, cfg.Client.Lng
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	loc := model.Location{Lat: lat, Lng: lng}
	if lat == 0 && lng == 0 {
		loc, err = locate.NewIPLocator().Acquire(ctx)
		if err != nil {
			return err
		}
	}

	state := session.New()
	state.SetLocation(loc)

	client := api.NewClient(cfg.Client.BaseURL, cfg.Client.VerifyToken)
	out, err := pipeline.New(client, client, state).Run(ctx, text)
	if err != nil {
		return err
	}

	fmt.Printf("location: %.6f, %.6f\n", loc.Lat, loc.Lng)
	fmt.Printf("parsed: query=%s radius=%dm mode=%s brand_strict=%t\n\n",
		out.Parsed.Query, out.Parsed.RadiusM, out.Parsed.WeightMode, out.Parsed.BrandStrict)

	if len(out.Results) == 0 {
		fmt.Println("no results")
		return nil
	}
	for i, it := range out.Results {
		line := fmt.Sprintf("%2d. %-32s %6.0fm  %.1f (%d)  score %.3f",
			i+1, it.Name, it.DistanceM, it.Rating, it.RatingCount, it.Score)
		if it.FlagLabel != "" {
			line += "  [" + it.FlagLabel + "]"
		}
		fmt.Println(line)
	}
	return nil
}
