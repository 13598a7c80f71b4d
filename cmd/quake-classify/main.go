// Command quake-classify prints the tier, color and marker radius for each
// magnitude given on the command line. With no arguments it prints the legend.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/mr1hm/go-quake-map/internal/config"
	"github.com/mr1hm/go-quake-map/internal/logging"
	"github.com/mr1hm/go-quake-map/internal/magnitude"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, "text")

	args := os.Args[1:]
	if len(args) == 0 {
		fmt.Printf("<= %.1f\t%s\n", magnitude.Legend()[0].LowerBound, magnitude.LowestColor)
		for _, e := range magnitude.Legend() {
			fmt.Printf(" > %.1f\t%s\n", e.LowerBound, e.Color)
		}
		return
	}

	failed := false
	for _, arg := range args {
		mag, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			slog.Error("not a magnitude", "input", arg)
			failed = true
			continue
		}
		class, err := magnitude.Classify(mag)
		if err != nil {
			slog.Error("cannot classify", "input", arg, "error", err)
			failed = true
			continue
		}
		fmt.Printf("%s\ttier=%d\tcolor=%s\tradius=%.3f\n", arg, class.Bucket.Tier, class.Color, class.Radius)
	}

	if failed {
		os.Exit(1)
	}
}
