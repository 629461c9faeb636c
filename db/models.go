package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// Life status values stored in patients.life_status.
const (
	LifeStatusAlive   = "Alive"
	LifeStatusExpired = "Expired"
)

type Patient struct {
	PatientID   int64       `db:"patient_id"`
	DateOfBirth pgtype.Date `db:"date_of_birth"`
	DobPrivacy  bool        `db:"dob_privacy"`
	Gender      string      `db:"gender"`
	LifeStatus  string      `db:"life_status"`
}

// DiagnosisDictionaryEntry is one row of d_diagnosis_icd. Placeholder
// entries created during diagnosis loading have a NULL long_title.
type DiagnosisDictionaryEntry struct {
	IcdCode    string      `db:"icd_code"`
	IcdVersion string      `db:"icd_version"`
	LongTitle  pgtype.Text `db:"long_title"`
	ValidFrom  pgtype.Date `db:"valid_from"`
	ValidTo    pgtype.Date `db:"valid_to"`
}

type Admission struct {
	AdmissionID       int64            `db:"admission_id"`
	PatientID         int64            `db:"patient_id"`
	AdmitTime         pgtype.Timestamp `db:"admit_time"`
	DischargeTime     pgtype.Timestamp `db:"discharge_time"`
	VisitType         pgtype.Text      `db:"visit_type"`
	InsurancePlan     pgtype.Text      `db:"insurance_plan"`
	MaritalStatus     pgtype.Text      `db:"marital_status"`
	ArrivalSource     pgtype.Text      `db:"arrival_source"`
	DischargeLocation pgtype.Text      `db:"discharge_location"`
}

type ICUStay struct {
	IcuStayID     int64            `db:"icu_stay_id"`
	AdmissionID   int64            `db:"admission_id"`
	IcuInTime     pgtype.Timestamp `db:"icu_in_time"`
	IcuOutTime    pgtype.Timestamp `db:"icu_out_time"`
	FirstCareunit pgtype.Text      `db:"first_careunit"`
	LastCareunit  pgtype.Text      `db:"last_careunit"`
	FirstWardid   pgtype.Int4      `db:"first_wardid"`
	LastWardid    pgtype.Int4      `db:"last_wardid"`
}

type Diagnosis struct {
	DiagnosisID        int64            `db:"diagnosis_id"`
	AdmissionID        int64            `db:"admission_id"`
	IcdCode            string           `db:"icd_code"`
	IcdVersion         string           `db:"icd_version"`
	AssignedTime       pgtype.Timestamp `db:"assigned_time"`
	PresentOnAdmission pgtype.Bool      `db:"present_on_admission"`
	Sequence           pgtype.Int4      `db:"sequence"`
}

type NoteEvent struct {
	NoteID      int64            `db:"note_id"`
	AdmissionID int64            `db:"admission_id"`
	IcuStayID   pgtype.Int8      `db:"icu_stay_id"`
	Author      pgtype.Text      `db:"author"`
	NoteType    pgtype.Text      `db:"note_type"`
	NoteTime    pgtype.Timestamp `db:"note_time"`
	HasError    bool             `db:"has_error"`
	NoteText    pgtype.Text      `db:"note_text"`
}

// TableCount is one line of the post-load verification summary.
type TableCount struct {
	Table string `db:"table_name"`
	Rows  int64  `db:"row_count"`
}
