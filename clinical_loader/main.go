package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"clinicaletl/config"
	"clinicaletl/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "clinical_loader",
		Short:         "Load clinical CSV extracts into PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(loadCmd())
	rootCmd.AddCommand(verifyCmd())
	rootCmd.AddCommand(convertCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and connects to PostgreSQL.
func setup(ctx context.Context) (*config.Config, zerolog.Logger, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), nil, err
	}
	log := cfg.NewLogger()
	if err := cfg.ValidateLoader(); err != nil {
		return nil, log, nil, err
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
	if err != nil {
		log.Error().Err(err).Msg("cannot connect to PostgreSQL")
		return nil, log, nil, err
	}
	log.Info().Msg("connected to PostgreSQL")
	return cfg, log, pool, nil
}

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the relational schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, log, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := db.New(pool).ApplySchema(ctx); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
			log.Info().Msg("schema applied")
			return nil
		},
	}
}

func loadCmd() *cobra.Command {
	var (
		dataDir    string
		onError    string
		matchOpen  bool
		chunk      int
		noteChunk  int
		applyFirst bool
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load all entities in dependency order",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("data-dir") {
				cfg.DataDir = dataDir
			}
			if flags.Changed("on-error") {
				cfg.OnEntityError = strings.ToLower(strings.TrimSpace(onError))
			}
			if flags.Changed("match-open-icu") {
				cfg.MatchOpenICUStays = matchOpen
			}
			if flags.Changed("chunk") {
				cfg.ChunkSize = chunk
			}
			if flags.Changed("note-chunk") {
				cfg.NoteChunkSize = noteChunk
			}

			log := cfg.NewLogger()
			if err := cfg.ValidateLoader(); err != nil {
				return err
			}

			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns)
			if err != nil {
				log.Error().Err(err).Msg("cannot connect to PostgreSQL")
				return err
			}
			defer pool.Close()

			if applyFirst {
				if err := db.New(pool).ApplySchema(ctx); err != nil {
					return fmt.Errorf("apply schema: %w", err)
				}
			}

			return runLoad(ctx, cfg, pool, log)
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory holding the extract files (overrides DATA_DIR)")
	cmd.Flags().StringVar(&onError, "on-error", "", "Entity failure policy: abort or continue (overrides ON_ENTITY_ERROR)")
	cmd.Flags().BoolVar(&matchOpen, "match-open-icu", false, "Let ICU stays without an out time match later notes")
	cmd.Flags().IntVar(&chunk, "chunk", 0, "Rows per transaction (overrides CHUNK_SIZE)")
	cmd.Flags().IntVar(&noteChunk, "note-chunk", 0, "Notes per transaction (overrides NOTE_CHUNK_SIZE)")
	cmd.Flags().BoolVar(&applyFirst, "init", false, "Apply the schema before loading")

	return cmd
}

// runLoad runs the pipeline and prints the summary and table counts.
func runLoad(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, log zerolog.Logger) error {
	resolver := newWindowResolver(cfg.MatchOpenICUStays)
	steps := newSteps(cfg, pool, resolver, log)

	summary, runErr := runPipeline(ctx, steps, cfg.OnEntityError, log)
	printSummary(summary)
	fmt.Printf("  ICU lookups:      %d (%d resolved)\n", resolver.lookups, resolver.resolved)

	if err := printTableCounts(ctx, db.New(pool)); err != nil {
		log.Error().Err(err).Msg("verification query failed")
		if runErr == nil {
			return err
		}
	}
	return runErr
}

func verifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Print the row count of every table",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			_, _, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			return printTableCounts(ctx, db.New(pool))
		},
	}
}

func printTableCounts(ctx context.Context, q *db.Queries) error {
	counts, err := q.TableCounts(ctx)
	if err != nil {
		return fmt.Errorf("count rows: %w", err)
	}

	fmt.Println()
	fmt.Printf("  %-16s %12s\n", "Table", "Rows")
	fmt.Printf("  %-16s %12s\n", strings.Repeat("-", 16), strings.Repeat("-", 12))
	for _, c := range counts {
		fmt.Printf("  %-16s %12d\n", c.Table, c.Rows)
	}
	return nil
}

// converters maps an entity name to the CSV → Parquet conversion for its row type.
var converters = map[string]func(in, out string, batch int) (convertResult, error){
	"patients":   convertFile[patientRow],
	"dictionary": convertFile[dictionaryRow],
	"admissions": convertFile[admissionRow],
	"icu_stays":  convertFile[icuStayRow],
	"diagnoses":  convertFile[diagnosisRow],
	"notes":      convertFile[noteRow],
}

func convertCmd() *cobra.Command {
	var (
		entity string
		input  string
		output string
		batch  int
	)

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert a CSV extract into a Parquet staging file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if batch <= 0 {
				return fmt.Errorf("--batch must be positive, got %d", batch)
			}
			conv, ok := converters[entity]
			if !ok {
				names := make([]string, 0, len(converters))
				for name := range converters {
					names = append(names, name)
				}
				sort.Strings(names)
				return fmt.Errorf("unknown entity %q (want one of %s)", entity, strings.Join(names, ", "))
			}
			if output == "" {
				output = strings.TrimSuffix(filepath.Base(input), filepath.Ext(input)) + ".parquet"
			}
			_, err := conv(input, output, batch)
			return err
		},
	}

	cmd.Flags().StringVar(&entity, "entity", "", "Row type of the input: patients, dictionary, admissions, icu_stays, diagnoses, notes")
	cmd.Flags().StringVar(&input, "file", "", "Input CSV file")
	cmd.Flags().StringVar(&output, "out", "", "Output Parquet file (default: input name with .parquet)")
	cmd.Flags().IntVar(&batch, "batch", 10000, "Rows per write")
	_ = cmd.MarkFlagRequired("entity")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
