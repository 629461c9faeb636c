package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestCSVSource_Chunks(t *testing.T) {
	path := writeFile(t, t.TempDir(), "patients.csv",
		"\xEF\xBB\xBF subject_id ,Gender,DOB,EXPIRE_FLAG\n"+
			"1,F,2075-03-13 00:00:00,0\n"+
			"2,M,2090-01-01 00:00:00,1\n"+
			"3,,,\n")

	src, err := newCSVSource[patientRow](path, 2)
	if err != nil {
		t.Fatalf("newCSVSource: %v", err)
	}
	defer src.Close()

	first, err := src.Next()
	if err != nil {
		t.Fatalf("first chunk: %v", err)
	}
	if len(first) != 2 {
		t.Fatalf("first chunk has %d rows, want 2", len(first))
	}
	// BOM and header case/whitespace must not hide the id column.
	if first[0].SubjectID != "1" || first[0].Gender != "F" {
		t.Errorf("row 1 = %+v", first[0])
	}
	if first[1].ExpireFlag != "1" {
		t.Errorf("row 2 EXPIRE_FLAG = %q", first[1].ExpireFlag)
	}

	second, err := src.Next()
	if err != nil {
		t.Fatalf("second chunk: %v", err)
	}
	if len(second) != 1 || second[0].SubjectID != "3" {
		t.Errorf("second chunk = %+v", second)
	}

	if _, err := src.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestCSVSource_MissingAndExtraColumns(t *testing.T) {
	path := writeFile(t, t.TempDir(), "notes.csv",
		"ROW_ID,HADM_ID,TEXT,UNRELATED\n"+
			"10,100,\"line one\nline two\",x\n")

	src, err := newCSVSource[noteRow](path, 10)
	if err != nil {
		t.Fatalf("newCSVSource: %v", err)
	}
	defer src.Close()

	rows, err := src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(rows))
	}
	if rows[0].Text != "line one\nline two" {
		t.Errorf("TEXT = %q", rows[0].Text)
	}
	if rows[0].ICUStayID != "" || rows[0].CGID != "" {
		t.Errorf("absent columns should decode empty: %+v", rows[0])
	}
}

func TestCSVSource_MalformedRowSkipped(t *testing.T) {
	path := writeFile(t, t.TempDir(), "dict.csv",
		"ICD9_CODE,SHORT_TITLE,LONG_TITLE\n"+
			"5859,CKD,Chronic kidney disease\n"+
			"bad\n"+
			"41071,Subendo,Subendocardial infarction\n")

	src, err := newCSVSource[dictionaryRow](path, 10)
	if err != nil {
		t.Fatalf("newCSVSource: %v", err)
	}
	defer src.Close()

	rows, err := src.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if src.Malformed() != 1 {
		t.Errorf("Malformed = %d, want 1", src.Malformed())
	}
}

func TestCSVSource_EmptyFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "empty.csv", "")
	if _, err := newCSVSource[patientRow](path, 10); err == nil {
		t.Error("expected error for file without header")
	}
}

func TestConvertThenParquetSource(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "ADMISSIONS.csv",
		"HADM_ID,SUBJECT_ID,ADMITTIME,DISCHTIME,ADMISSION_TYPE\n"+
			"100,1,2130-01-01 08:00:00,2130-01-05 10:00:00,EMERGENCY\n"+
			"101,1,2131-02-01 08:00:00,,ELECTIVE\n"+
			"102,2,2132-03-01 08:00:00,2132-03-02 08:00:00,\n")
	out := filepath.Join(dir, "ADMISSIONS.parquet")

	res, err := convertFile[admissionRow](in, out, 2)
	if err != nil {
		t.Fatalf("convertFile: %v", err)
	}
	if res.Rows != 3 {
		t.Errorf("converted %d rows, want 3", res.Rows)
	}

	src, err := openSource[admissionRow](out, 2)
	if err != nil {
		t.Fatalf("openSource: %v", err)
	}
	defer src.Close()
	if _, ok := src.(*parquetSource[admissionRow]); !ok {
		t.Fatalf("openSource chose %T for a .parquet file", src)
	}

	var all []admissionRow
	for {
		rows, err := src.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if len(rows) > 2 {
			t.Errorf("chunk of %d rows exceeds chunk size 2", len(rows))
		}
		all = append(all, rows...)
	}

	if len(all) != 3 {
		t.Fatalf("read %d rows, want 3", len(all))
	}
	if all[1].HadmID != "101" || all[1].DischTime != "" || all[1].AdmissionType != "ELECTIVE" {
		t.Errorf("row 2 = %+v", all[1])
	}
}

func TestStagingWriter_AbortRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "PATIENTS.parquet")
	w, err := newStagingWriter[patientRow](path)
	if err != nil {
		t.Fatalf("newStagingWriter: %v", err)
	}
	if err := w.Append([]patientRow{{SubjectID: "1"}, {SubjectID: "2"}}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if w.Rows() != 2 {
		t.Errorf("Rows = %d, want 2", w.Rows())
	}

	w.Abort()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("staging file still present after Abort: %v", err)
	}
}

func TestConvertCmd_RejectsNonPositiveBatch(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "PATIENTS.csv", "SUBJECT_ID,GENDER\n1,F\n")
	out := filepath.Join(dir, "PATIENTS.parquet")

	for _, batch := range []string{"0", "-5"} {
		cmd := convertCmd()
		cmd.SetOut(io.Discard)
		cmd.SetErr(io.Discard)
		cmd.SetArgs([]string{"--entity", "patients", "--file", in, "--out", out, "--batch", batch})

		err := cmd.Execute()
		if err == nil || !strings.Contains(err.Error(), "--batch") {
			t.Errorf("batch %s: err = %v, want a --batch error", batch, err)
		}
		if _, err := os.Stat(out); !os.IsNotExist(err) {
			t.Errorf("batch %s: output written", batch)
		}
	}
}
