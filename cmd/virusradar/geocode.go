package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ceyeborg/virusradar/internal/config"
	"github.com/ceyeborg/virusradar/internal/constants"
	"github.com/ceyeborg/virusradar/internal/geocode"
	"github.com/ceyeborg/virusradar/internal/location"
	"github.com/ceyeborg/virusradar/internal/logger"
)

var geocodeConfigPath string

// geocodeCmd groups the offline geocoder utilities.
var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Inspect the offline GeoNames geocoder",
	Long: `Utilities around the bundled GeoNames cities1000 dataset: resolve a
city name to coordinates, find the nearest known city to a coordinate
pair, or list the dataset archives available on the configured mirror.`,
}

// geocodeLookupCmd represents the geocode lookup command
var geocodeLookupCmd = &cobra.Command{
	Use:   "lookup <city> [country]",
	Short: "Resolve a city name to coordinates",
	Args:  cobra.RangeArgs(1, 2),
	Run:   geocodeLookupHandler,
}

// geocodeNearestCmd represents the geocode nearest command
var geocodeNearestCmd = &cobra.Command{
	Use:   "nearest <lat> <lon>",
	Short: "Find the nearest known city to coordinates",
	Args:  cobra.ExactArgs(2),
	Run:   geocodeNearestHandler,
}

// geocodeDumpsCmd represents the geocode dumps command
var geocodeDumpsCmd = &cobra.Command{
	Use:   "dumps",
	Short: "List dataset archives on the GeoNames mirror",
	Args:  cobra.NoArgs,
	Run:   geocodeDumpsHandler,
}

func geocodeLookupHandler(cmd *cobra.Command, args []string) {
	cfg, log := geocodeSetup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	datasetPath, err := geocode.EnsureDataset(ctx, cfg.Geocoder.DatasetURL, cfg.Geocoder.DataDir, log)
	if err != nil {
		log.Error("failed to prepare geocoder dataset", err)
		os.Exit(1)
	}

	geo, err := geocode.NewFromFile(datasetPath, log)
	if err != nil {
		log.Error("failed to load geocoder dataset", err)
		os.Exit(1)
	}

	country := "DE"
	if len(args) > 1 {
		country = strings.ToUpper(args[1])
	}

	coords, ok := geo.Lookup(args[0], country)
	if !ok {
		fmt.Fprintf(os.Stderr, "city %q not found in %s\n", args[0], country)
		os.Exit(1)
	}

	fmt.Printf("%s (%s): %.5f, %.5f\n", args[0], country, coords.Latitude, coords.Longitude)
}

func geocodeNearestHandler(cmd *cobra.Command, args []string) {
	lat, lon, err := parseLatLon(args[0], args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg, log := geocodeSetup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	datasetPath, err := geocode.EnsureDataset(ctx, cfg.Geocoder.DatasetURL, cfg.Geocoder.DataDir, log)
	if err != nil {
		log.Error("failed to prepare geocoder dataset", err)
		os.Exit(1)
	}

	geo, err := geocode.NewFromFile(datasetPath, log)
	if err != nil {
		log.Error("failed to load geocoder dataset", err)
		os.Exit(1)
	}

	city, ok := geo.Nearest(lat, lon, "DE")
	if !ok {
		fmt.Fprintf(os.Stderr, "no city found near %.5f, %.5f\n", lat, lon)
		os.Exit(1)
	}

	if province, ok := location.ProvinceFromAdmin1(city.Admin1Code); ok {
		fmt.Printf("%s (%s): %.5f, %.5f\n", city.Name, province, city.Latitude, city.Longitude)
		return
	}
	fmt.Printf("%s: %.5f, %.5f\n", city.Name, city.Latitude, city.Longitude)
}

// parseLatLon validates a coordinate pair given as command arguments.
func parseLatLon(latArg, lonArg string) (float64, float64, error) {
	lat, err := strconv.ParseFloat(latArg, 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("invalid latitude %q", latArg)
	}
	lon, err := strconv.ParseFloat(lonArg, 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("invalid longitude %q", lonArg)
	}
	return lat, lon, nil
}

func geocodeDumpsHandler(cmd *cobra.Command, args []string) {
	cfg, log := geocodeSetup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dumps, err := geocode.DiscoverDumps(ctx, cfg.Geocoder.MirrorURL)
	if err != nil {
		log.Error("failed to list mirror dumps", err)
		os.Exit(1)
	}

	for _, d := range dumps {
		fmt.Printf("%s\t%s\n", d.Name, d.URL)
	}
}

// geocodeSetup loads configuration and builds a text logger on stderr so the
// command output on stdout stays machine-readable.
func geocodeSetup() (*config.Config, *logger.Logger) {
	configPath := geocodeConfigPath
	if configPath == "" {
		configPath = constants.DefaultConfigPath
	}

	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: "text",
		Output: "stderr",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	return cfg, log
}

func init() {
	geocodeCmd.AddCommand(geocodeLookupCmd)
	geocodeCmd.AddCommand(geocodeNearestCmd)
	geocodeCmd.AddCommand(geocodeDumpsCmd)
	geocodeCmd.PersistentFlags().StringVarP(&geocodeConfigPath, "config", "c", "", "Path to configuration file (default: ./config.toml)")
}
