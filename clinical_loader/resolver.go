package main

import (
	"context"
	"fmt"
	"time"

	"clinicaletl/db"

	"github.com/jackc/pgx/v5/pgtype"
)

// icuStayLister is the query the resolver needs; *db.Queries satisfies it.
type icuStayLister interface {
	ListICUStaysForAdmission(ctx context.Context, admissionID int64) ([]db.ICUStay, error)
}

// stayResolver infers the ICU stay a note was written during.
type stayResolver interface {
	Resolve(ctx context.Context, stays icuStayLister, admissionID int64, at time.Time) (pgtype.Int8, error)
}

// windowResolver picks the stay of the admission whose [in, out] window
// contains the note time. Stays without an out time only match when
// matchOpen is set.
type windowResolver struct {
	matchOpen bool
	lookups   int
	resolved  int
}

func newWindowResolver(matchOpen bool) *windowResolver {
	return &windowResolver{matchOpen: matchOpen}
}

func (r *windowResolver) Resolve(ctx context.Context, stays icuStayLister, admissionID int64, at time.Time) (pgtype.Int8, error) {
	r.lookups++
	candidates, err := stays.ListICUStaysForAdmission(ctx, admissionID)
	if err != nil {
		return pgtype.Int8{}, fmt.Errorf("list icu stays for admission %d: %w", admissionID, err)
	}
	id, ok := containingStay(candidates, at, r.matchOpen)
	if !ok {
		return pgtype.Int8{}, nil
	}
	r.resolved++
	return pgtype.Int8{Int64: id, Valid: true}, nil
}

// containingStay returns the smallest stay id whose window contains at.
// Both bounds are inclusive.
func containingStay(stays []db.ICUStay, at time.Time, matchOpen bool) (int64, bool) {
	var (
		best  int64
		found bool
	)
	for _, s := range stays {
		if !s.IcuInTime.Valid || at.Before(s.IcuInTime.Time) {
			continue
		}
		if s.IcuOutTime.Valid {
			if at.After(s.IcuOutTime.Time) {
				continue
			}
		} else if !matchOpen {
			continue
		}
		if !found || s.IcuStayID < best {
			best = s.IcuStayID
			found = true
		}
	}
	return best, found
}
