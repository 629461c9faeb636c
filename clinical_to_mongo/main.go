package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"clinicaletl/config"
	"clinicaletl/db"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinical_to_mongo",
		Short:         "Rebuild the patient document store from PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(indexesCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("mongo-uri") {
		cfg.MongoURI, _ = flags.GetString("mongo-uri")
	}
	if flags.Changed("mongo-db") {
		cfg.MongoDatabase, _ = flags.GetString("mongo-db")
	}
	if flags.Changed("batch") {
		cfg.DocBatchSize, _ = flags.GetInt("batch")
	}
	return cfg, nil
}

func addMongoFlags(cmd *cobra.Command) {
	cmd.Flags().String("mongo-uri", "", "MongoDB connection string (overrides MONGO_URI)")
	cmd.Flags().String("mongo-db", "", "MongoDB database (overrides MONGO_DB)")
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Drop and rebuild the patients and diagnosis_dictionary collections",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := cfg.NewLogger()
			if err := cfg.ValidateMigrator(); err != nil {
				return err
			}

			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
			if err != nil {
				log.Error().Err(err).Msg("cannot connect to PostgreSQL")
				return err
			}
			defer pool.Close()
			log.Info().Msg("connected to PostgreSQL")

			fetchStart := time.Now()
			s, err := fetchSnapshot(ctx, pool)
			if err != nil {
				return err
			}
			s.printCounts(time.Since(fetchStart))

			sink, err := newMongoSink(ctx, cfg.MongoURI, cfg.MongoDatabase)
			if err != nil {
				log.Error().Err(err).Msg("cannot connect to MongoDB")
				return err
			}
			defer sink.Close(context.Background())
			log.Info().Str("database", cfg.MongoDatabase).Msg("connected to MongoDB")

			res, err := migrate(ctx, s, sink, cfg.DocBatchSize, log)
			if err != nil {
				return err
			}

			fmt.Printf("Done in %s\n", res.Elapsed.Round(time.Millisecond))
			fmt.Printf("  Patient documents:     %d\n", res.Patients)
			fmt.Printf("  Dictionary documents:  %d\n", res.Dictionary)
			fmt.Printf("  Batches:               %d\n", res.Batches)
			return nil
		},
	}
	addMongoFlags(cmd)
	cmd.Flags().Int("batch", 0, "Documents per insert (overrides DOC_BATCH_SIZE)")
	return cmd
}

func indexesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indexes",
		Short: "Create the document store indexes without migrating",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			log := cfg.NewLogger()
			if cfg.MongoURI == "" || cfg.MongoDatabase == "" {
				return fmt.Errorf("MONGO_URI and MONGO_DB are required")
			}

			sink, err := newMongoSink(ctx, cfg.MongoURI, cfg.MongoDatabase)
			if err != nil {
				return err
			}
			defer sink.Close(context.Background())

			if err := sink.EnsureIndexes(ctx); err != nil {
				return err
			}
			log.Info().Str("database", cfg.MongoDatabase).Msg("indexes created")
			return nil
		},
	}
	addMongoFlags(cmd)
	return cmd
}
