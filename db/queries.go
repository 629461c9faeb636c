package db

import (
	"context"

	"github.com/jackc/pgx/v5"
)

const insertPatient = `
INSERT INTO patients (patient_id, date_of_birth, dob_privacy, gender, life_status)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (patient_id) DO NOTHING`

// InsertPatient returns the number of rows written: 0 when the id already exists.
func (q *Queries) InsertPatient(ctx context.Context, arg Patient) (int64, error) {
	tag, err := q.db.Exec(ctx, insertPatient,
		arg.PatientID, arg.DateOfBirth, arg.DobPrivacy, arg.Gender, arg.LifeStatus)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const insertDictionaryEntry = `
INSERT INTO d_diagnosis_icd (icd_code, icd_version, long_title, valid_from, valid_to)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (icd_code, icd_version) DO NOTHING`

func (q *Queries) InsertDictionaryEntry(ctx context.Context, arg DiagnosisDictionaryEntry) (int64, error) {
	tag, err := q.db.Exec(ctx, insertDictionaryEntry,
		arg.IcdCode, arg.IcdVersion, arg.LongTitle, arg.ValidFrom, arg.ValidTo)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const insertPlaceholderEntry = `
INSERT INTO d_diagnosis_icd (icd_code, icd_version, long_title, valid_from, valid_to)
VALUES ($1, $2, NULL, NULL, NULL)
ON CONFLICT (icd_code, icd_version) DO NOTHING`

// InsertPlaceholderEntry backfills a dictionary row whose title is unknown.
func (q *Queries) InsertPlaceholderEntry(ctx context.Context, icdCode, icdVersion string) (int64, error) {
	tag, err := q.db.Exec(ctx, insertPlaceholderEntry, icdCode, icdVersion)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const insertAdmission = `
INSERT INTO admission (
    admission_id, patient_id, admit_time, discharge_time,
    visit_type, insurance_plan, marital_status, arrival_source, discharge_location
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (admission_id) DO NOTHING`

func (q *Queries) InsertAdmission(ctx context.Context, arg Admission) (int64, error) {
	tag, err := q.db.Exec(ctx, insertAdmission,
		arg.AdmissionID, arg.PatientID, arg.AdmitTime, arg.DischargeTime,
		arg.VisitType, arg.InsurancePlan, arg.MaritalStatus, arg.ArrivalSource, arg.DischargeLocation)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const insertICUStay = `
INSERT INTO icu_stays (
    icu_stay_id, admission_id, icu_in_time, icu_out_time,
    first_careunit, last_careunit, first_wardid, last_wardid
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (icu_stay_id) DO NOTHING`

func (q *Queries) InsertICUStay(ctx context.Context, arg ICUStay) (int64, error) {
	tag, err := q.db.Exec(ctx, insertICUStay,
		arg.IcuStayID, arg.AdmissionID, arg.IcuInTime, arg.IcuOutTime,
		arg.FirstCareunit, arg.LastCareunit, arg.FirstWardid, arg.LastWardid)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const insertDiagnosis = `
INSERT INTO diagnosis_icd (
    diagnosis_id, admission_id, icd_code, icd_version,
    assigned_time, present_on_admission, sequence
)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (diagnosis_id) DO NOTHING`

func (q *Queries) InsertDiagnosis(ctx context.Context, arg Diagnosis) (int64, error) {
	tag, err := q.db.Exec(ctx, insertDiagnosis,
		arg.DiagnosisID, arg.AdmissionID, arg.IcdCode, arg.IcdVersion,
		arg.AssignedTime, arg.PresentOnAdmission, arg.Sequence)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const insertNoteEvent = `
INSERT INTO note_events (
    note_id, admission_id, icu_stay_id, author,
    note_type, note_time, has_error, note_text
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (note_id) DO NOTHING`

func (q *Queries) InsertNoteEvent(ctx context.Context, arg NoteEvent) (int64, error) {
	tag, err := q.db.Exec(ctx, insertNoteEvent,
		arg.NoteID, arg.AdmissionID, arg.IcuStayID, arg.Author,
		arg.NoteType, arg.NoteTime, arg.HasError, arg.NoteText)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const icuStayColumns = `icu_stay_id, admission_id, icu_in_time, icu_out_time,
       first_careunit, last_careunit, first_wardid, last_wardid`

const listICUStaysForAdmission = `
SELECT ` + icuStayColumns + `
FROM icu_stays
WHERE admission_id = $1
ORDER BY icu_stay_id`

// ListICUStaysForAdmission returns the stays of one admission ordered by id.
func (q *Queries) ListICUStaysForAdmission(ctx context.Context, admissionID int64) ([]ICUStay, error) {
	rows, err := q.db.Query(ctx, listICUStaysForAdmission, admissionID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[ICUStay])
}

const listPatients = `
SELECT patient_id, date_of_birth, dob_privacy, gender, life_status
FROM patients
ORDER BY patient_id`

func (q *Queries) ListPatients(ctx context.Context) ([]Patient, error) {
	rows, err := q.db.Query(ctx, listPatients)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Patient])
}

const listDictionary = `
SELECT icd_code, icd_version, long_title, valid_from, valid_to
FROM d_diagnosis_icd
ORDER BY icd_code, icd_version`

func (q *Queries) ListDictionary(ctx context.Context) ([]DiagnosisDictionaryEntry, error) {
	rows, err := q.db.Query(ctx, listDictionary)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[DiagnosisDictionaryEntry])
}

const getDictionaryEntry = `
SELECT icd_code, icd_version, long_title, valid_from, valid_to
FROM d_diagnosis_icd
WHERE icd_code = $1 AND icd_version = $2`

func (q *Queries) GetDictionaryEntry(ctx context.Context, icdCode, icdVersion string) (DiagnosisDictionaryEntry, error) {
	rows, err := q.db.Query(ctx, getDictionaryEntry, icdCode, icdVersion)
	if err != nil {
		return DiagnosisDictionaryEntry{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[DiagnosisDictionaryEntry])
}

const listAdmissions = `
SELECT admission_id, patient_id, admit_time, discharge_time,
       visit_type, insurance_plan, marital_status, arrival_source, discharge_location
FROM admission
ORDER BY admission_id`

func (q *Queries) ListAdmissions(ctx context.Context) ([]Admission, error) {
	rows, err := q.db.Query(ctx, listAdmissions)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Admission])
}

const listICUStays = `
SELECT ` + icuStayColumns + `
FROM icu_stays
ORDER BY icu_stay_id`

func (q *Queries) ListICUStays(ctx context.Context) ([]ICUStay, error) {
	rows, err := q.db.Query(ctx, listICUStays)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[ICUStay])
}

const listDiagnoses = `
SELECT diagnosis_id, admission_id, icd_code, icd_version,
       assigned_time, present_on_admission, sequence
FROM diagnosis_icd
ORDER BY diagnosis_id`

func (q *Queries) ListDiagnoses(ctx context.Context) ([]Diagnosis, error) {
	rows, err := q.db.Query(ctx, listDiagnoses)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[Diagnosis])
}

const listNoteEvents = `
SELECT note_id, admission_id, icu_stay_id, author,
       note_type, note_time, has_error, note_text
FROM note_events
ORDER BY note_id`

func (q *Queries) ListNoteEvents(ctx context.Context) ([]NoteEvent, error) {
	rows, err := q.db.Query(ctx, listNoteEvents)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[NoteEvent])
}

const getNoteEvent = `
SELECT note_id, admission_id, icu_stay_id, author,
       note_type, note_time, has_error, note_text
FROM note_events
WHERE note_id = $1`

func (q *Queries) GetNoteEvent(ctx context.Context, noteID int64) (NoteEvent, error) {
	rows, err := q.db.Query(ctx, getNoteEvent, noteID)
	if err != nil {
		return NoteEvent{}, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[NoteEvent])
}

const tableCounts = `
SELECT table_name, row_count FROM (
    SELECT 1 AS ord, 'patients' AS table_name, COUNT(*) AS row_count FROM patients
    UNION ALL SELECT 2, 'd_diagnosis_icd', COUNT(*) FROM d_diagnosis_icd
    UNION ALL SELECT 3, 'admission', COUNT(*) FROM admission
    UNION ALL SELECT 4, 'icu_stays', COUNT(*) FROM icu_stays
    UNION ALL SELECT 5, 'diagnosis_icd', COUNT(*) FROM diagnosis_icd
    UNION ALL SELECT 6, 'note_events', COUNT(*) FROM note_events
) counts
ORDER BY ord`

// TableCounts returns one row count per table, in load order.
func (q *Queries) TableCounts(ctx context.Context) ([]TableCount, error) {
	rows, err := q.db.Query(ctx, tableCounts)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[TableCount])
}
