package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"clinicaletl/config"

	"github.com/rs/zerolog"
)

// step loads one entity from one file.
type step struct {
	entity string
	path   string
	run    func(ctx context.Context, path string) (loadStats, error)
}

type stepFailure struct {
	Entity string
	Err    error
}

// runSummary is what the pipeline did, entity by entity.
type runSummary struct {
	Loaded  []loadStats
	Missing []string
	Failed  []stepFailure
	Elapsed time.Duration
}

// newSteps returns the loader steps in dependency order: parents are always
// loaded before the rows that reference them.
func newSteps(cfg *config.Config, conn txBeginner, resolver stayResolver, log zerolog.Logger) []step {
	h := &rowHandlers{icdVersion: cfg.ICDVersion, resolver: resolver}
	chunk := cfg.ChunkSize

	return []step{
		entityStep[patientRow](conn, "patients", cfg.Path(cfg.PatientsFile), chunk, h.patient, log),
		entityStep[dictionaryRow](conn, "d_diagnosis_icd", cfg.Path(cfg.DictionaryFile), chunk, h.dictionary, log),
		entityStep[admissionRow](conn, "admission", cfg.Path(cfg.AdmissionsFile), chunk, h.admission, log),
		entityStep[icuStayRow](conn, "icu_stays", cfg.Path(cfg.ICUStaysFile), chunk, h.icuStay, log),
		entityStep[diagnosisRow](conn, "diagnosis_icd", cfg.Path(cfg.DiagnosesFile), chunk, h.diagnosis, log),
		entityStep[noteRow](conn, "note_events", cfg.Path(cfg.NotesFile), cfg.NoteChunkSize, h.note, log),
	}
}

func entityStep[T any](conn txBeginner, entity, path string, chunk int, load rowLoader[T], log zerolog.Logger) step {
	return step{
		entity: entity,
		path:   path,
		run: func(ctx context.Context, path string) (loadStats, error) {
			src, err := openSource[T](path, chunk)
			if err != nil {
				return loadStats{Entity: entity}, err
			}
			defer src.Close()
			return loadEntity(ctx, conn, entity, src, load, log)
		},
	}
}

// runPipeline runs steps in order. A missing file skips its step with a
// warning. A failed step stops the run under the abort policy; under the
// continue policy the remaining steps run and the failures are returned
// joined at the end.
func runPipeline(ctx context.Context, steps []step, onError string, log zerolog.Logger) (runSummary, error) {
	start := time.Now()
	var summary runSummary

	for _, s := range steps {
		if _, err := os.Stat(s.path); err != nil {
			log.Warn().Str("entity", s.entity).Str("file", s.path).Msg("input file not found, skipping")
			summary.Missing = append(summary.Missing, s.entity)
			continue
		}

		log.Info().Str("entity", s.entity).Str("file", s.path).Msg("loading")
		stats, err := s.run(ctx, s.path)
		if err != nil {
			summary.Failed = append(summary.Failed, stepFailure{Entity: s.entity, Err: err})
			if onError != config.OnErrorContinue {
				summary.Elapsed = time.Since(start)
				return summary, fmt.Errorf("load %s: %w", s.entity, err)
			}
			log.Error().Err(err).Str("entity", s.entity).Msg("entity failed, continuing")
			continue
		}

		log.Info().
			Str("entity", s.entity).
			Int("rows", stats.Read).
			Int("inserted", stats.Inserted).
			Int("duplicates", stats.Duplicates).
			Int("rejected", stats.Rejected).
			Int("healed", stats.Healed).
			Int("skipped", stats.Skipped).
			Dur("elapsed", stats.Elapsed).
			Msg("entity loaded")
		summary.Loaded = append(summary.Loaded, stats)
	}

	summary.Elapsed = time.Since(start)

	if len(summary.Failed) > 0 {
		errs := make([]error, 0, len(summary.Failed))
		for _, f := range summary.Failed {
			errs = append(errs, fmt.Errorf("load %s: %w", f.Entity, f.Err))
		}
		return summary, errors.Join(errs...)
	}
	return summary, nil
}

func printSummary(summary runSummary) {
	fmt.Println()
	fmt.Printf("Done in %s\n", summary.Elapsed.Round(time.Millisecond))
	fmt.Printf("  %-16s %10s %10s %10s %10s %8s %8s\n", "Entity", "Read", "Inserted", "Duplicate", "Rejected", "Healed", "Skipped")
	for _, s := range summary.Loaded {
		fmt.Printf("  %-16s %10d %10d %10d %10d %8d %8d\n",
			s.Entity, s.Read, s.Inserted, s.Duplicates, s.Rejected+s.Malformed, s.Healed, s.Skipped)
	}
	for _, e := range summary.Missing {
		fmt.Printf("  %-16s %10s\n", e, "missing")
	}
	for _, f := range summary.Failed {
		fmt.Printf("  %-16s %10s  %v\n", f.Entity, "FAILED", f.Err)
	}
}
