package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"clinicaletl/db"

	"github.com/rs/zerolog"
)

// memorySink records what the migrator writes.
type memorySink struct {
	resets          int
	dictionary      []DictionaryDoc
	patients        []PatientDoc
	patientBatches  []int
	indexesEnsured  bool
	failPatientCall int
}

func (m *memorySink) Reset(ctx context.Context) error {
	m.resets++
	m.dictionary = nil
	m.patients = nil
	m.patientBatches = nil
	return nil
}

func (m *memorySink) InsertDictionary(ctx context.Context, docs []DictionaryDoc) error {
	m.dictionary = append(m.dictionary, docs...)
	return nil
}

func (m *memorySink) InsertPatients(ctx context.Context, docs []PatientDoc) error {
	if m.failPatientCall > 0 && len(m.patientBatches)+1 == m.failPatientCall {
		return errors.New("bulk write exception")
	}
	m.patientBatches = append(m.patientBatches, len(docs))
	m.patients = append(m.patients, docs...)
	return nil
}

func (m *memorySink) EnsureIndexes(ctx context.Context) error {
	m.indexesEnsured = true
	return nil
}

func manyPatients(n int) *snapshot {
	s := &snapshot{}
	for i := 1; i <= n; i++ {
		s.Patients = append(s.Patients, db.Patient{PatientID: int64(i), Gender: "F", LifeStatus: db.LifeStatusAlive})
	}
	return s
}

func TestWriteBatches(t *testing.T) {
	docs := make([]int, 2500)
	var sizes []int

	n, err := writeBatches(context.Background(), docs, 1000, func(ctx context.Context, batch []int) error {
		sizes = append(sizes, len(batch))
		return nil
	})
	if err != nil {
		t.Fatalf("writeBatches: %v", err)
	}
	if n != 3 || fmt.Sprint(sizes) != "[1000 1000 500]" {
		t.Errorf("batches = %d %v, want 3 [1000 1000 500]", n, sizes)
	}

	n, err = writeBatches(context.Background(), []int{}, 1000, func(ctx context.Context, batch []int) error {
		t.Error("write called for empty input")
		return nil
	})
	if err != nil || n != 0 {
		t.Errorf("empty input = %d, %v", n, err)
	}
}

func TestMigrate_WritesEverything(t *testing.T) {
	sink := &memorySink{}
	s := manyPatients(2500)
	s.Dictionary = testSnapshot(t).Dictionary

	res, err := migrate(context.Background(), s, sink, 1000, zerolog.Nop())
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if sink.resets != 1 {
		t.Errorf("Reset called %d times", sink.resets)
	}
	if fmt.Sprint(sink.patientBatches) != "[1000 1000 500]" {
		t.Errorf("patient batches = %v", sink.patientBatches)
	}
	if res.Patients != 2500 || len(sink.patients) != 2500 {
		t.Errorf("patients written = %d/%d", res.Patients, len(sink.patients))
	}
	if res.Dictionary != 2 || len(sink.dictionary) != 2 {
		t.Errorf("dictionary written = %d/%d", res.Dictionary, len(sink.dictionary))
	}
	if res.Batches != 4 {
		t.Errorf("Batches = %d, want 4", res.Batches)
	}
	if !sink.indexesEnsured {
		t.Error("indexes not created")
	}
}

func TestMigrate_RerunRebuilds(t *testing.T) {
	sink := &memorySink{}
	s := testSnapshot(t)

	for i := 0; i < 2; i++ {
		if _, err := migrate(context.Background(), s, sink, 1000, zerolog.Nop()); err != nil {
			t.Fatalf("migrate run %d: %v", i+1, err)
		}
	}
	if len(sink.patients) != len(s.Patients) {
		t.Errorf("after two runs the sink holds %d patients, want %d", len(sink.patients), len(s.Patients))
	}
}

func TestMigrate_BatchFailureNamesRange(t *testing.T) {
	sink := &memorySink{failPatientCall: 2}

	_, err := migrate(context.Background(), manyPatients(2500), sink, 1000, zerolog.Nop())
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "documents 1001-2000") {
		t.Errorf("error %q does not name the failed batch range", err)
	}
	if len(sink.patientBatches) != 1 {
		t.Errorf("batches after failure = %v, want only the first", sink.patientBatches)
	}
	if sink.indexesEnsured {
		t.Error("indexes created after a failed migration")
	}
}
