package main

import (
	"context"
	"fmt"
	"time"

	"clinicaletl/db"

	"github.com/jackc/pgx/v5"
)

// snapshotBeginner is satisfied by *pgxpool.Pool.
type snapshotBeginner interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// snapshot is the full relational state the documents are built from. Every
// list is in primary key order.
type snapshot struct {
	Patients   []db.Patient
	Dictionary []db.DiagnosisDictionaryEntry
	Admissions []db.Admission
	ICUStays   []db.ICUStay
	Diagnoses  []db.Diagnosis
	Notes      []db.NoteEvent
}

// fetchSnapshot reads all six tables inside one read-only, repeatable-read
// transaction so the documents see a single consistent state.
func fetchSnapshot(ctx context.Context, conn snapshotBeginner) (*snapshot, error) {
	tx, err := conn.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	q := db.New(tx)
	s := &snapshot{}

	if s.Patients, err = q.ListPatients(ctx); err != nil {
		return nil, fmt.Errorf("fetch patients: %w", err)
	}
	if s.Dictionary, err = q.ListDictionary(ctx); err != nil {
		return nil, fmt.Errorf("fetch dictionary: %w", err)
	}
	if s.Admissions, err = q.ListAdmissions(ctx); err != nil {
		return nil, fmt.Errorf("fetch admissions: %w", err)
	}
	if s.ICUStays, err = q.ListICUStays(ctx); err != nil {
		return nil, fmt.Errorf("fetch icu stays: %w", err)
	}
	if s.Diagnoses, err = q.ListDiagnoses(ctx); err != nil {
		return nil, fmt.Errorf("fetch diagnoses: %w", err)
	}
	if s.Notes, err = q.ListNoteEvents(ctx); err != nil {
		return nil, fmt.Errorf("fetch notes: %w", err)
	}
	return s, nil
}

func (s *snapshot) printCounts(elapsed time.Duration) {
	fmt.Printf("Fetched from PostgreSQL in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("  Patients:    %d\n", len(s.Patients))
	fmt.Printf("  Dictionary:  %d\n", len(s.Dictionary))
	fmt.Printf("  Admissions:  %d\n", len(s.Admissions))
	fmt.Printf("  ICU stays:   %d\n", len(s.ICUStays))
	fmt.Printf("  Diagnoses:   %d\n", len(s.Diagnoses))
	fmt.Printf("  Notes:       %d\n", len(s.Notes))
	fmt.Println()
}
