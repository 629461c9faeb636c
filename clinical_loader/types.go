package main

// Raw extract rows. Every column is read as text and normalized when the row
// is converted for insertion, so a malformed value rejects one row instead of
// failing the decoder. The csv tags match the upper-cased source headers; the
// parquet tags name the columns of staging files written by `convert`.

type patientRow struct {
	SubjectID  string `csv:"SUBJECT_ID" parquet:"subject_id"`
	Gender     string `csv:"GENDER" parquet:"gender"`
	DOB        string `csv:"DOB" parquet:"dob"`
	ExpireFlag string `csv:"EXPIRE_FLAG" parquet:"expire_flag"`
}

type dictionaryRow struct {
	ICD9Code   string `csv:"ICD9_CODE" parquet:"icd9_code"`
	ShortTitle string `csv:"SHORT_TITLE" parquet:"short_title"`
	LongTitle  string `csv:"LONG_TITLE" parquet:"long_title"`
}

type admissionRow struct {
	HadmID            string `csv:"HADM_ID" parquet:"hadm_id"`
	SubjectID         string `csv:"SUBJECT_ID" parquet:"subject_id"`
	AdmitTime         string `csv:"ADMITTIME" parquet:"admittime"`
	DischTime         string `csv:"DISCHTIME" parquet:"dischtime"`
	AdmissionType     string `csv:"ADMISSION_TYPE" parquet:"admission_type"`
	Insurance         string `csv:"INSURANCE" parquet:"insurance"`
	MaritalStatus     string `csv:"MARITAL_STATUS" parquet:"marital_status"`
	AdmissionLocation string `csv:"ADMISSION_LOCATION" parquet:"admission_location"`
	DischargeLocation string `csv:"DISCHARGE_LOCATION" parquet:"discharge_location"`
}

type icuStayRow struct {
	ICUStayID     string `csv:"ICUSTAY_ID" parquet:"icustay_id"`
	HadmID        string `csv:"HADM_ID" parquet:"hadm_id"`
	InTime        string `csv:"INTIME" parquet:"intime"`
	OutTime       string `csv:"OUTTIME" parquet:"outtime"`
	FirstCareUnit string `csv:"FIRST_CAREUNIT" parquet:"first_careunit"`
	LastCareUnit  string `csv:"LAST_CAREUNIT" parquet:"last_careunit"`
	FirstWardID   string `csv:"FIRST_WARDID" parquet:"first_wardid"`
	LastWardID    string `csv:"LAST_WARDID" parquet:"last_wardid"`
}

type diagnosisRow struct {
	RowID    string `csv:"ROW_ID" parquet:"row_id"`
	HadmID   string `csv:"HADM_ID" parquet:"hadm_id"`
	SeqNum   string `csv:"SEQ_NUM" parquet:"seq_num"`
	ICD9Code string `csv:"ICD9_CODE" parquet:"icd9_code"`
}

type noteRow struct {
	RowID       string `csv:"ROW_ID" parquet:"row_id"`
	HadmID      string `csv:"HADM_ID" parquet:"hadm_id"`
	ICUStayID   string `csv:"ICUSTAY_ID" parquet:"icustay_id"`
	ChartDate   string `csv:"CHARTDATE" parquet:"chartdate"`
	ChartTime   string `csv:"CHARTTIME" parquet:"charttime"`
	StoreTime   string `csv:"STORETIME" parquet:"storetime"`
	Category    string `csv:"CATEGORY" parquet:"category"`
	Description string `csv:"DESCRIPTION" parquet:"description"`
	CGID        string `csv:"CGID" parquet:"cgid"`
	IsError     string `csv:"ISERROR" parquet:"iserror"`
	Text        string `csv:"TEXT" parquet:"text"`
}
