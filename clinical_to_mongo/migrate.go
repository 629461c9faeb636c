package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

type migrateResult struct {
	Patients   int
	Dictionary int
	Batches    int
	Elapsed    time.Duration
}

// migrate rebuilds the document store from a relational snapshot.
func migrate(ctx context.Context, s *snapshot, sink docSink, batchSize int, log zerolog.Logger) (migrateResult, error) {
	start := time.Now()
	var res migrateResult

	if err := sink.Reset(ctx); err != nil {
		return res, err
	}

	dictionary := assembleDictionary(s.Dictionary)
	n, err := writeBatches(ctx, dictionary, batchSize, sink.InsertDictionary)
	if err != nil {
		return res, fmt.Errorf("write dictionary: %w", err)
	}
	res.Dictionary = len(dictionary)
	res.Batches += n
	log.Info().Int("docs", res.Dictionary).Msg("dictionary written")

	patients := assemblePatients(s)
	lastLog := time.Now()
	n, err = writeBatches(ctx, patients, batchSize, func(ctx context.Context, batch []PatientDoc) error {
		if err := sink.InsertPatients(ctx, batch); err != nil {
			return err
		}
		res.Patients += len(batch)
		if time.Since(lastLog) >= 5*time.Second {
			log.Info().Int("docs", res.Patients).Int("total", len(patients)).Msg("progress")
			lastLog = time.Now()
		}
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("write patients: %w", err)
	}
	res.Batches += n
	log.Info().Int("docs", res.Patients).Msg("patients written")

	if err := sink.EnsureIndexes(ctx); err != nil {
		return res, err
	}

	res.Elapsed = time.Since(start)
	return res, nil
}

// writeBatches hands docs to write in slices of at most size, including the
// final partial slice. The first failing batch stops the write and its range
// is reported in the error.
func writeBatches[T any](ctx context.Context, docs []T, size int, write func(context.Context, []T) error) (int, error) {
	batches := 0
	for lo := 0; lo < len(docs); lo += size {
		hi := min(lo+size, len(docs))
		if err := write(ctx, docs[lo:hi]); err != nil {
			return batches, fmt.Errorf("batch %d (documents %d-%d): %w", batches+1, lo+1, hi, err)
		}
		batches++
	}
	return batches, nil
}
