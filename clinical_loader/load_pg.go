package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"clinicaletl/db"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// rowOutcome is what happened to one source row.
type rowOutcome int

const (
	outcomeInserted rowOutcome = iota
	outcomeDuplicate
	outcomeRejected
	outcomeHealed
	outcomeSkipped
)

func (o rowOutcome) String() string {
	switch o {
	case outcomeInserted:
		return "inserted"
	case outcomeDuplicate:
		return "duplicate"
	case outcomeRejected:
		return "rejected"
	case outcomeHealed:
		return "healed"
	case outcomeSkipped:
		return "skipped"
	}
	return fmt.Sprintf("rowOutcome(%d)", int(o))
}

// insertOutcome maps the rows-affected count of an ON CONFLICT DO NOTHING
// insert to an outcome.
func insertOutcome(affected int64) rowOutcome {
	if affected == 0 {
		return outcomeDuplicate
	}
	return outcomeInserted
}

// loadStats aggregates row outcomes for one entity.
type loadStats struct {
	Entity     string
	Read       int
	Inserted   int
	Duplicates int
	Rejected   int
	Healed     int
	Skipped    int
	Malformed  int
	Chunks     int
	Elapsed    time.Duration
}

func (s *loadStats) record(o rowOutcome) {
	switch o {
	case outcomeInserted:
		s.Inserted++
	case outcomeDuplicate:
		s.Duplicates++
	case outcomeRejected:
		s.Rejected++
	case outcomeHealed:
		s.Inserted++
		s.Healed++
	case outcomeSkipped:
		s.Skipped++
	}
}

// rowLoader converts one raw row and writes it inside tx. Returning
// outcomeRejected without an error rejects a row that failed conversion.
type rowLoader[T any] func(ctx context.Context, tx pgx.Tx, row *T) (rowOutcome, error)

// txBeginner is satisfied by *pgxpool.Pool and pgx.Tx.
type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// loadEntity drains src in chunks. Every chunk is one transaction and every
// row runs in its own savepoint, so an integrity violation discards that row
// only. Any other failure rolls back the chunk and is returned.
func loadEntity[T any](ctx context.Context, conn txBeginner, entity string, src rowSource[T], load rowLoader[T], log zerolog.Logger) (loadStats, error) {
	start := time.Now()
	stats := loadStats{Entity: entity}
	lastLog := time.Now()

	for {
		rows, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return stats, fmt.Errorf("read %s chunk %d: %w", entity, stats.Chunks+1, err)
		}

		chunk, err := loadChunk(ctx, conn, rows, load)
		if err != nil {
			log.Error().Err(err).Str("entity", entity).Int("chunk", stats.Chunks+1).Msg("chunk rolled back")
			return stats, fmt.Errorf("load %s chunk %d (rows %d-%d): %w",
				entity, stats.Chunks+1, stats.Read+1, stats.Read+len(rows), err)
		}

		stats.Chunks++
		stats.Read += len(rows)
		stats.Inserted += chunk.Inserted
		stats.Duplicates += chunk.Duplicates
		stats.Rejected += chunk.Rejected
		stats.Healed += chunk.Healed
		stats.Skipped += chunk.Skipped

		log.Debug().Str("entity", entity).Int("chunk", stats.Chunks).Int("rows", len(rows)).Msg("chunk committed")
		if time.Since(lastLog) >= 5*time.Second {
			log.Info().
				Str("entity", entity).
				Int("rows", stats.Read).
				Int("inserted", stats.Inserted).
				Int("skipped", stats.Duplicates+stats.Rejected+stats.Skipped).
				Int("healed", stats.Healed).
				Float64("rows_per_sec", float64(stats.Read)/time.Since(start).Seconds()).
				Msg("progress")
			lastLog = time.Now()
		}
	}

	stats.Malformed = src.Malformed()
	stats.Elapsed = time.Since(start)
	return stats, nil
}

func loadChunk[T any](ctx context.Context, conn txBeginner, rows []T, load rowLoader[T]) (loadStats, error) {
	var stats loadStats

	tx, err := conn.Begin(ctx)
	if err != nil {
		return stats, fmt.Errorf("begin tx: %w", err)
	}

	for i := range rows {
		outcome, err := loadRow(ctx, tx, &rows[i], load)
		if err != nil {
			tx.Rollback(ctx)
			return stats, fmt.Errorf("row %d of chunk: %w", i+1, err)
		}
		stats.record(outcome)
	}

	if err := tx.Commit(ctx); err != nil {
		return stats, fmt.Errorf("commit: %w", err)
	}
	return stats, nil
}

// loadRow runs load inside a savepoint. Integrity violations roll back to
// the savepoint and become outcomeRejected.
func loadRow[T any](ctx context.Context, tx pgx.Tx, row *T, load rowLoader[T]) (rowOutcome, error) {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("savepoint: %w", err)
	}

	outcome, err := load(ctx, sp, row)
	if err != nil {
		sp.Rollback(ctx)
		if db.IsRowRejection(err) {
			return outcomeRejected, nil
		}
		return 0, err
	}
	if outcome == outcomeRejected || outcome == outcomeSkipped {
		sp.Rollback(ctx)
		return outcome, nil
	}

	if err := sp.Commit(ctx); err != nil {
		return 0, fmt.Errorf("release savepoint: %w", err)
	}
	return outcome, nil
}
