package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"geofuse/core/config"
	"geofuse/core/logger"
	"geofuse/core/storage"
	"geofuse/feature/geolocate/landmark"

	"github.com/minio/minio-go/v7"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	landmarksMeta   string
	landmarksDir    string
	landmarksObject string
)

// landmarksCmd groups the landmark index maintenance commands.
var landmarksCmd = &cobra.Command{
	Use:   "landmarks",
	Short: "Manage the landmark reference index",
}

// landmarksBuildCmd builds the vector index from a JSONL manifest with
// embeddings inline (produced by the platform's embedding batch job).
var landmarksBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the landmark index from a JSONL manifest",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(landmarksMeta)
		if err != nil {
			return fmt.Errorf("open manifest: %w", err)
		}
		defer f.Close()

		idx, err := landmark.BuildIndex(context.Background(), f)
		if err != nil {
			return err
		}
		defer idx.Close()

		if err := idx.Save(landmarksDir); err != nil {
			return err
		}
		fmt.Printf("indexed %d landmarks into %s\n", idx.Len(), filepath.Join(landmarksDir, landmark.IndexFileName))
		return nil
	},
}

// landmarksPullCmd fetches a prebuilt index snapshot from the platform
// object store.
var landmarksPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Pull a prebuilt landmark index from object storage",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig(".")
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
		logg, err := logger.New(&cfg.Log)
		if err != nil {
			log.Fatalf("Failed to initialize logger: %v", err)
		}
		defer logg.Sync()

		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return fmt.Errorf("storage client: %w", err)
		}

		if err := os.MkdirAll(landmarksDir, 0o755); err != nil {
			return fmt.Errorf("create index dir: %w", err)
		}

		dest := filepath.Join(landmarksDir, landmark.IndexFileName)
		if err := client.FGetObject(context.Background(), cfg.Storage.Bucket, landmarksObject, dest, minio.GetObjectOptions{}); err != nil {
			return fmt.Errorf("pull index: %w", err)
		}

		logg.Info("Pulled landmark index",
			zap.String("bucket", cfg.Storage.Bucket),
			zap.String("object", landmarksObject),
			zap.String("dest", dest))
		return nil
	},
}

func init() {
	landmarksBuildCmd.Flags().StringVar(&landmarksMeta, "meta", "meta.jsonl", "JSONL manifest with inline embeddings")
	landmarksBuildCmd.Flags().StringVar(&landmarksDir, "dir", "landmarks", "index output directory")

	landmarksPullCmd.Flags().StringVar(&landmarksDir, "dir", "landmarks", "index destination directory")
	landmarksPullCmd.Flags().StringVar(&landmarksObject, "object", "landmarks/"+landmark.IndexFileName, "object key of the index snapshot")

	landmarksCmd.AddCommand(landmarksBuildCmd)
	landmarksCmd.AddCommand(landmarksPullCmd)
	RootCmd.AddCommand(landmarksCmd)
}
