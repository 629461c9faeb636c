package main

import (
	"clinicaletl/db"
	"clinicaletl/normalize"

	"github.com/jackc/pgx/v5/pgtype"
)

// PatientDoc is the aggregate stored in the patients collection.
type PatientDoc struct {
	PatientID   int64          `bson:"patientId"`
	DateOfBirth *string        `bson:"dateOfBirth"`
	DobPrivacy  bool           `bson:"dobPrivacy"`
	Gender      string         `bson:"gender"`
	LifeStatus  string         `bson:"lifeStatus"`
	Admissions  []AdmissionDoc `bson:"admissions"`
}

type AdmissionDoc struct {
	AdmissionID       int64          `bson:"admissionId"`
	AdmitTime         *string        `bson:"admitTime"`
	DischargeTime     *string        `bson:"dischargeTime"`
	VisitType         *string        `bson:"visitType"`
	InsurancePlan     *string        `bson:"insurancePlan"`
	MaritalStatus     *string        `bson:"maritalStatus"`
	ArrivalSource     *string        `bson:"arrivalSource"`
	DischargeLocation *string        `bson:"dischargeLocation"`
	ICUStays          []ICUStayDoc   `bson:"icuStays"`
	Notes             []NoteDoc      `bson:"notes"`
	Diagnoses         []DiagnosisDoc `bson:"diagnoses"`
}

type ICUStayDoc struct {
	ICUStayID     int64   `bson:"icuStayId"`
	ICUInTime     *string `bson:"icuInTime"`
	ICUOutTime    *string `bson:"icuOutTime"`
	FirstCareUnit *string `bson:"firstCareUnit"`
	LastCareUnit  *string `bson:"lastCareUnit"`
	FirstWardID   *int32  `bson:"firstWardId"`
	LastWardID    *int32  `bson:"lastWardId"`
}

type NoteDoc struct {
	NoteID    int64   `bson:"noteId"`
	ICUStayID *int64  `bson:"icuStayId"`
	Author    *string `bson:"author"`
	NoteType  *string `bson:"noteType"`
	NoteTime  *string `bson:"noteTime"`
	HasError  bool    `bson:"hasError"`
	NoteText  *string `bson:"noteText"`
}

type DiagnosisDoc struct {
	DiagnosisID        int64   `bson:"diagnosisId"`
	ICDCode            string  `bson:"icdCode"`
	ICDVersion         string  `bson:"icdVersion"`
	AssignedTime       *string `bson:"assignedTime"`
	PresentOnAdmission *bool   `bson:"presentOnAdmission"`
	Sequence           *int32  `bson:"sequence"`
}

// DictionaryDoc is one entry of the flat diagnosis_dictionary collection.
type DictionaryDoc struct {
	ICDCode    string  `bson:"icdCode"`
	ICDVersion string  `bson:"icdVersion"`
	LongTitle  *string `bson:"longTitle"`
	ValidFrom  *string `bson:"validFrom"`
	ValidTo    *string `bson:"validTo"`
}

// groupBy partitions items by key. Items keep their input order within each
// group.
func groupBy[T any](items []T, key func(*T) int64) map[int64][]T {
	groups := make(map[int64][]T)
	for i := range items {
		k := key(&items[i])
		groups[k] = append(groups[k], items[i])
	}
	return groups
}

// assemblePatients builds one document per patient. Children with no parent
// in the snapshot are never reached and so never written.
func assemblePatients(s *snapshot) []PatientDoc {
	admissionsByPatient := groupBy(s.Admissions, func(a *db.Admission) int64 { return a.PatientID })
	staysByAdmission := groupBy(s.ICUStays, func(st *db.ICUStay) int64 { return st.AdmissionID })
	notesByAdmission := groupBy(s.Notes, func(n *db.NoteEvent) int64 { return n.AdmissionID })
	diagnosesByAdmission := groupBy(s.Diagnoses, func(d *db.Diagnosis) int64 { return d.AdmissionID })

	docs := make([]PatientDoc, 0, len(s.Patients))
	for _, p := range s.Patients {
		admissions := admissionsByPatient[p.PatientID]
		doc := PatientDoc{
			PatientID:   p.PatientID,
			DateOfBirth: dateText(p.DateOfBirth),
			DobPrivacy:  p.DobPrivacy,
			Gender:      p.Gender,
			LifeStatus:  p.LifeStatus,
			Admissions:  make([]AdmissionDoc, 0, len(admissions)),
		}
		for _, a := range admissions {
			doc.Admissions = append(doc.Admissions, admissionDoc(a,
				staysByAdmission[a.AdmissionID],
				notesByAdmission[a.AdmissionID],
				diagnosesByAdmission[a.AdmissionID]))
		}
		docs = append(docs, doc)
	}
	return docs
}

func admissionDoc(a db.Admission, stays []db.ICUStay, notes []db.NoteEvent, diagnoses []db.Diagnosis) AdmissionDoc {
	doc := AdmissionDoc{
		AdmissionID:       a.AdmissionID,
		AdmitTime:         timestampText(a.AdmitTime),
		DischargeTime:     timestampText(a.DischargeTime),
		VisitType:         text(a.VisitType),
		InsurancePlan:     text(a.InsurancePlan),
		MaritalStatus:     text(a.MaritalStatus),
		ArrivalSource:     text(a.ArrivalSource),
		DischargeLocation: text(a.DischargeLocation),
		ICUStays:          make([]ICUStayDoc, 0, len(stays)),
		Notes:             make([]NoteDoc, 0, len(notes)),
		Diagnoses:         make([]DiagnosisDoc, 0, len(diagnoses)),
	}

	for _, st := range stays {
		doc.ICUStays = append(doc.ICUStays, ICUStayDoc{
			ICUStayID:     st.IcuStayID,
			ICUInTime:     timestampText(st.IcuInTime),
			ICUOutTime:    timestampText(st.IcuOutTime),
			FirstCareUnit: text(st.FirstCareunit),
			LastCareUnit:  text(st.LastCareunit),
			FirstWardID:   int4(st.FirstWardid),
			LastWardID:    int4(st.LastWardid),
		})
	}
	for _, n := range notes {
		var stayID *int64
		if n.IcuStayID.Valid {
			stayID = &n.IcuStayID.Int64
		}
		doc.Notes = append(doc.Notes, NoteDoc{
			NoteID:    n.NoteID,
			ICUStayID: stayID,
			Author:    text(n.Author),
			NoteType:  text(n.NoteType),
			NoteTime:  timestampText(n.NoteTime),
			HasError:  n.HasError,
			NoteText:  text(n.NoteText),
		})
	}
	for _, d := range diagnoses {
		var poa *bool
		if d.PresentOnAdmission.Valid {
			poa = &d.PresentOnAdmission.Bool
		}
		doc.Diagnoses = append(doc.Diagnoses, DiagnosisDoc{
			DiagnosisID:        d.DiagnosisID,
			ICDCode:            d.IcdCode,
			ICDVersion:         d.IcdVersion,
			AssignedTime:       timestampText(d.AssignedTime),
			PresentOnAdmission: poa,
			Sequence:           int4(d.Sequence),
		})
	}
	return doc
}

func assembleDictionary(entries []db.DiagnosisDictionaryEntry) []DictionaryDoc {
	docs := make([]DictionaryDoc, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, DictionaryDoc{
			ICDCode:    e.IcdCode,
			ICDVersion: e.IcdVersion,
			LongTitle:  text(e.LongTitle),
			ValidFrom:  dateText(e.ValidFrom),
			ValidTo:    dateText(e.ValidTo),
		})
	}
	return docs
}

func text(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	s := t.String
	return &s
}

func int4(n pgtype.Int4) *int32 {
	if !n.Valid {
		return nil
	}
	v := n.Int32
	return &v
}

func dateText(d pgtype.Date) *string {
	if !d.Valid {
		return nil
	}
	s := normalize.FormatDate(d.Time)
	return &s
}

func timestampText(t pgtype.Timestamp) *string {
	if !t.Valid {
		return nil
	}
	s := normalize.FormatTimestamp(t.Time)
	return &s
}
