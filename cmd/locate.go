package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"geofuse/core/cache"
	"geofuse/core/config"
	"geofuse/core/logger"
	"geofuse/feature/geolocate"
	"geofuse/feature/geolocate/models"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var locateFile string

// locateCmd resolves a single record from a file or stdin and prints
// the estimate as JSON. Persistence and the HTTP surface stay out of
// the way; this is the analyst's one-shot path.
var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Geolocate a single record",
	Long: `Reads one record (JSON) from a file or stdin, runs all enabled
resolvers, fuses the signals and prints the estimate as JSON.
Exits non-zero when no signal resolved.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}

		// Console logging on stderr keeps stdout clean for the result.
		cfg.Log.Format = "console"
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()

		in := os.Stdin
		if locateFile != "" {
			f, err := os.Open(locateFile)
			if err != nil {
				return fmt.Errorf("open record: %w", err)
			}
			defer f.Close()
			in = f
		}

		var rec models.Record
		if err := json.NewDecoder(in).Decode(&rec); err != nil {
			return fmt.Errorf("decode record: %w", err)
		}

		feature := geolocate.NewFeature(cfg.Geo, logg, nil, nil, "", cache.NewMemory())
		est, err := feature.Service().Locate(context.Background(), &rec)
		if err != nil {
			return err
		}
		if est == nil {
			logg.Warn("no signal resolved", zap.String("method", models.MethodNone))
			os.Exit(1)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(est)
	},
}

func init() {
	locateCmd.Flags().StringVarP(&locateFile, "file", "f", "", "record JSON file (default: stdin)")
	RootCmd.AddCommand(locateCmd)
}
