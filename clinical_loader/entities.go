package main

import (
	"context"
	"fmt"
	"time"

	"clinicaletl/db"
	"clinicaletl/normalize"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const unknownAuthor = "Unknown"

// rowHandlers converts raw rows into table rows and inserts them.
type rowHandlers struct {
	icdVersion string
	resolver   stayResolver
}

func (h *rowHandlers) patient(ctx context.Context, tx pgx.Tx, row *patientRow) (rowOutcome, error) {
	id, ok := normalize.Int(row.SubjectID)
	if !ok {
		return outcomeRejected, nil
	}

	gender := normalize.Value(row.Gender)
	if gender == "" {
		gender = "UNKNOWN"
	}
	lifeStatus := db.LifeStatusAlive
	if normalize.Flag(row.ExpireFlag) {
		lifeStatus = db.LifeStatusExpired
	}

	n, err := db.New(tx).InsertPatient(ctx, db.Patient{
		PatientID:   id,
		DateOfBirth: pgDate(row.DOB),
		DobPrivacy:  false,
		Gender:      gender,
		LifeStatus:  lifeStatus,
	})
	if err != nil {
		return 0, fmt.Errorf("insert patient %d: %w", id, err)
	}
	return insertOutcome(n), nil
}

func (h *rowHandlers) dictionary(ctx context.Context, tx pgx.Tx, row *dictionaryRow) (rowOutcome, error) {
	code := normalize.ICDCode(row.ICD9Code)
	if code == "" {
		return outcomeSkipped, nil
	}

	n, err := db.New(tx).InsertDictionaryEntry(ctx, db.DiagnosisDictionaryEntry{
		IcdCode:    code,
		IcdVersion: h.icdVersion,
		LongTitle:  pgText(row.LongTitle),
	})
	if err != nil {
		return 0, fmt.Errorf("insert dictionary entry %s: %w", code, err)
	}
	return insertOutcome(n), nil
}

func (h *rowHandlers) admission(ctx context.Context, tx pgx.Tx, row *admissionRow) (rowOutcome, error) {
	id, ok := normalize.Int(row.HadmID)
	if !ok {
		return outcomeRejected, nil
	}
	patientID, ok := normalize.Int(row.SubjectID)
	if !ok {
		return outcomeRejected, nil
	}
	admitTime := pgTimestamp(row.AdmitTime)
	if !admitTime.Valid {
		return outcomeRejected, nil
	}

	n, err := db.New(tx).InsertAdmission(ctx, db.Admission{
		AdmissionID:       id,
		PatientID:         patientID,
		AdmitTime:         admitTime,
		DischargeTime:     pgTimestamp(row.DischTime),
		VisitType:         pgText(row.AdmissionType),
		InsurancePlan:     pgText(row.Insurance),
		MaritalStatus:     pgText(row.MaritalStatus),
		ArrivalSource:     pgText(row.AdmissionLocation),
		DischargeLocation: pgText(row.DischargeLocation),
	})
	if err != nil {
		return 0, fmt.Errorf("insert admission %d: %w", id, err)
	}
	return insertOutcome(n), nil
}

func (h *rowHandlers) icuStay(ctx context.Context, tx pgx.Tx, row *icuStayRow) (rowOutcome, error) {
	id, ok := normalize.Int(row.ICUStayID)
	if !ok {
		return outcomeRejected, nil
	}
	admissionID, ok := normalize.Int(row.HadmID)
	if !ok {
		return outcomeRejected, nil
	}
	inTime := pgTimestamp(row.InTime)
	if !inTime.Valid {
		return outcomeRejected, nil
	}

	n, err := db.New(tx).InsertICUStay(ctx, db.ICUStay{
		IcuStayID:     id,
		AdmissionID:   admissionID,
		IcuInTime:     inTime,
		IcuOutTime:    pgTimestamp(row.OutTime),
		FirstCareunit: pgText(row.FirstCareUnit),
		LastCareunit:  pgText(row.LastCareUnit),
		FirstWardid:   pgInt4(row.FirstWardID),
		LastWardid:    pgInt4(row.LastWardID),
	})
	if err != nil {
		return 0, fmt.Errorf("insert icu stay %d: %w", id, err)
	}
	return insertOutcome(n), nil
}

// diagnosis inserts a diagnosis. When only the dictionary entry is missing,
// a placeholder entry is backfilled and the insert is retried once.
func (h *rowHandlers) diagnosis(ctx context.Context, tx pgx.Tx, row *diagnosisRow) (rowOutcome, error) {
	id, ok := normalize.Int(row.RowID)
	if !ok {
		return outcomeRejected, nil
	}
	admissionID, ok := normalize.Int(row.HadmID)
	if !ok {
		return outcomeRejected, nil
	}
	code := normalize.ICDCode(row.ICD9Code)
	if code == "" {
		return outcomeSkipped, nil
	}

	d := db.Diagnosis{
		DiagnosisID: id,
		AdmissionID: admissionID,
		IcdCode:     code,
		IcdVersion:  h.icdVersion,
		Sequence:    pgInt4(row.SeqNum),
	}

	attempt, err := tx.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("savepoint: %w", err)
	}
	n, err := db.New(attempt).InsertDiagnosis(ctx, d)
	if err == nil {
		if err := attempt.Commit(ctx); err != nil {
			return 0, fmt.Errorf("release savepoint: %w", err)
		}
		return insertOutcome(n), nil
	}
	attempt.Rollback(ctx)
	if !db.IsForeignKeyViolation(err, db.ConstraintDiagnosisDictionary) {
		return 0, fmt.Errorf("insert diagnosis %d: %w", id, err)
	}

	q := db.New(tx)
	if _, err := q.InsertPlaceholderEntry(ctx, code, h.icdVersion); err != nil {
		return 0, fmt.Errorf("backfill dictionary entry %s: %w", code, err)
	}
	n, err = q.InsertDiagnosis(ctx, d)
	if err != nil {
		return 0, fmt.Errorf("retry diagnosis %d: %w", id, err)
	}
	if n == 0 {
		return outcomeDuplicate, nil
	}
	return outcomeHealed, nil
}

// note inserts a note event. A note without an explicit ICU stay is matched
// to the stay whose window contains its chart (or store) time.
func (h *rowHandlers) note(ctx context.Context, tx pgx.Tx, row *noteRow) (rowOutcome, error) {
	q := db.New(tx)
	note, ok, err := buildNote(ctx, q, h.resolver, row)
	if err != nil {
		return 0, err
	}
	if !ok {
		return outcomeRejected, nil
	}

	n, err := q.InsertNoteEvent(ctx, note)
	if err != nil {
		return 0, fmt.Errorf("insert note %d: %w", note.NoteID, err)
	}
	return insertOutcome(n), nil
}

// buildNote converts a raw note row. ok is false when a required id is missing.
func buildNote(ctx context.Context, stays icuStayLister, resolver stayResolver, row *noteRow) (db.NoteEvent, bool, error) {
	id, ok := normalize.Int(row.RowID)
	if !ok {
		return db.NoteEvent{}, false, nil
	}
	admissionID, ok := normalize.Int(row.HadmID)
	if !ok {
		return db.NoteEvent{}, false, nil
	}

	author := normalize.Value(row.Description)
	if author == "" {
		author = normalize.Value(row.CGID)
	}
	if author == "" {
		author = unknownAuthor
	}

	note := db.NoteEvent{
		NoteID:      id,
		AdmissionID: admissionID,
		Author:      pgtype.Text{String: author, Valid: true},
		NoteType:    pgText(row.Category),
		NoteTime:    noteTime(row),
		HasError:    normalize.Flag(row.IsError),
		NoteText:    pgRawText(row.Text),
	}

	if stayID, ok := normalize.Int(row.ICUStayID); ok {
		note.IcuStayID = pgtype.Int8{Int64: stayID, Valid: true}
		return note, true, nil
	}

	at, ok := eventTime(row)
	if !ok {
		return note, true, nil
	}
	stayID, err := resolver.Resolve(ctx, stays, admissionID, at)
	if err != nil {
		return db.NoteEvent{}, false, fmt.Errorf("resolve icu stay for note %d: %w", id, err)
	}
	note.IcuStayID = stayID
	return note, true, nil
}

// eventTime is the time used for ICU stay resolution: chart time, else
// store time. Chart date alone is too coarse to place a note in a stay.
func eventTime(row *noteRow) (time.Time, bool) {
	if t, ok := normalize.Timestamp(row.ChartTime); ok {
		return t, true
	}
	return normalize.Timestamp(row.StoreTime)
}

// noteTime is the stored note time: chart time, store time, then chart date.
func noteTime(row *noteRow) pgtype.Timestamp {
	if t, ok := eventTime(row); ok {
		return pgtype.Timestamp{Time: t, Valid: true}
	}
	if d, ok := normalize.Date(row.ChartDate); ok {
		return pgtype.Timestamp{Time: d, Valid: true}
	}
	return pgtype.Timestamp{}
}

func pgText(s string) pgtype.Text {
	v := normalize.Null(s)
	if v == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}

// pgRawText keeps note bodies byte for byte; only absence is normalized.
func pgRawText(s string) pgtype.Text {
	v := normalize.Text(s)
	if v == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *v, Valid: true}
}

func pgTimestamp(s string) pgtype.Timestamp {
	t, ok := normalize.Timestamp(s)
	if !ok {
		return pgtype.Timestamp{}
	}
	return pgtype.Timestamp{Time: t, Valid: true}
}

func pgDate(s string) pgtype.Date {
	t, ok := normalize.Date(s)
	if !ok {
		return pgtype.Date{}
	}
	return pgtype.Date{Time: t, Valid: true}
}

func pgInt4(s string) pgtype.Int4 {
	n, ok := normalize.Int(s)
	if !ok || n < -1<<31 || n > 1<<31-1 {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: int32(n), Valid: true}
}
