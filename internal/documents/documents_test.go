package documents

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"tuition/internal/core"
	"tuition/internal/storage"
)

var testInstitute = core.InstituteInfo{
	ID:      1,
	Name:    "SANSA LEARN",
	Address: "Chandmari Road, Kankarbagh",
	Contact: "9296820840, 9153021229",
}

var testStudent = core.Student{
	ID:              1,
	AdmissionNumber: "SL20240001",
	Name:            "Aryan Kumar",
	FatherName:      "Rajesh Kumar",
	Class:           "8",
	FeePerMonth:     core.Money{Paise: 100000},
	Discount:        core.Money{Paise: 10000},
	AdmissionDate:   "2024-01-15",
}

func TestReceiptNumber(t *testing.T) {
	tests := []struct {
		name string
		fee  core.FeeRecord
		want string
	}{
		{"single digit month", core.FeeRecord{ID: 7, Month: 3, Year: 2024}, "REC2024030007"},
		{"double digit month", core.FeeRecord{ID: 123, Month: 11, Year: 2025}, "REC2025110123"},
		{"large id", core.FeeRecord{ID: 45678, Month: 1, Year: 2024}, "REC20240145678"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReceiptNumber(tt.fee); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildReceipt(t *testing.T) {
	fee := core.FeeRecord{
		ID:          12,
		StudentID:   1,
		Month:       4,
		Year:        2024,
		Amount:      core.Money{Paise: 90000},
		Paid:        true,
		PaymentDate: "2024-04-18",
		PaymentMode: "Cash",
	}
	issuedAt := time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

	r := BuildReceipt(testStudent, fee, testInstitute, issuedAt)

	if r.ReceiptNumber != "REC2024040012" {
		t.Errorf("got receipt number %q", r.ReceiptNumber)
	}
	if r.Date != "2024-04-18" {
		t.Errorf("got date %q, want the payment date", r.Date)
	}
	if r.Institute.Name != "SANSA LEARN" {
		t.Errorf("got institute %q", r.Institute.Name)
	}
	if r.Student.AdmissionNumber != "SL20240001" || r.Student.FatherName != "Rajesh Kumar" {
		t.Errorf("student block wrong: %+v", r.Student)
	}
	if r.FeePeriod != "April 2024" {
		t.Errorf("got fee period %q", r.FeePeriod)
	}
	if r.AmountPaid != "Rs 900.00" {
		t.Errorf("got amount %q", r.AmountPaid)
	}
}

func TestBuildReceiptUnpaidFallsBackToIssueDate(t *testing.T) {
	fee := core.FeeRecord{ID: 3, Month: 2, Year: 2024, Amount: core.Money{Paise: 90000}}
	issuedAt := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)

	r := BuildReceipt(testStudent, fee, testInstitute, issuedAt)
	if r.Date != "2024-03-05" {
		t.Errorf("got date %q, want the issue date", r.Date)
	}
}

func TestBuildDemandNotice(t *testing.T) {
	summary := core.UnpaidSummary{
		Items: []core.UnpaidItem{
			{MonthName: "January", Month: 1, Year: 2024, Amount: core.Money{Paise: 50000}},
			{MonthName: "March", Month: 3, Year: 2024, Amount: core.Money{Paise: 45000}},
		},
		TotalDue: core.Money{Paise: 95000},
	}
	issuedAt := time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)

	n := BuildDemandNotice(testStudent, summary, testInstitute, issuedAt)

	if n.AllClear {
		t.Error("notice with dues must not be all clear")
	}
	if len(n.DueLines) != 2 {
		t.Fatalf("got %d due lines, want 2", len(n.DueLines))
	}
	if n.DueLines[0].Period != "January 2024" || n.DueLines[0].Amount != "Rs 500.00" {
		t.Errorf("first line wrong: %+v", n.DueLines[0])
	}
	if n.TotalDue != "Rs 950.00" {
		t.Errorf("got total %q", n.TotalDue)
	}
}

func TestBuildDemandNoticeAllClear(t *testing.T) {
	n := BuildDemandNotice(testStudent, core.UnpaidSummary{}, testInstitute, time.Now())
	if !n.AllClear || len(n.DueLines) != 0 {
		t.Errorf("expected all-clear notice, got %+v", n)
	}
}

func TestBuildRegistrationCard(t *testing.T) {
	card := BuildRegistrationCard(testStudent, testInstitute,
		time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC))

	if card.Student.Name != "Aryan Kumar" {
		t.Errorf("got name %q", card.Student.Name)
	}
	if card.MonthlyFee != "Rs 1000.00" || card.Discount != "Rs 100.00" {
		t.Errorf("fee block wrong: %q / %q", card.MonthlyFee, card.Discount)
	}
	if card.NetMonthlyFee != "Rs 900.00" {
		t.Errorf("got net fee %q", card.NetMonthlyFee)
	}
	if card.AdmissionDate != "2024-01-15" {
		t.Errorf("got admission date %q", card.AdmissionDate)
	}
}

func TestPublicToken(t *testing.T) {
	token := PublicToken("SL20240001", "secret")
	if len(token) != 16 {
		t.Fatalf("got token length %d, want 16", len(token))
	}
	for _, r := range token {
		if !strings.ContainsRune("0123456789abcdef", r) {
			t.Fatalf("token %q contains non-hex character %q", token, r)
		}
	}

	if PublicToken("SL20240001", "other") == token {
		t.Error("token must depend on the secret")
	}
	if PublicToken("SL20240002", "secret") == token {
		t.Error("token must depend on the admission number")
	}
}

func TestVerifyToken(t *testing.T) {
	token := PublicToken("SL20240001", "secret")

	if !VerifyToken("SL20240001", "secret", token) {
		t.Error("valid token rejected")
	}
	if VerifyToken("SL20240001", "secret", "deadbeefdeadbeef") {
		t.Error("forged token accepted")
	}
	if VerifyToken("SL20240002", "secret", token) {
		t.Error("token accepted for the wrong student")
	}
	if VerifyToken("SL20240001", "secret", "") {
		t.Error("empty token accepted")
	}
}

func TestWriteStudentsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteStudentsCSV(&buf, []core.Student{testStudent}); err != nil {
		t.Fatalf("WriteStudentsCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want header + 1 row", len(lines))
	}
	if !strings.HasPrefix(lines[0], "ID,Admission Number,Name,Father Name") {
		t.Errorf("header wrong: %q", lines[0])
	}
	if !strings.Contains(lines[1], "SL20240001") || !strings.Contains(lines[1], "1000.00") {
		t.Errorf("row wrong: %q", lines[1])
	}
}

func TestWriteFeesCSV(t *testing.T) {
	fees := []storage.JoinedFee{
		{
			Fee: core.FeeRecord{
				ID: 12, StudentID: 1, Month: 4, Year: 2024,
				Amount: core.Money{Paise: 90000}, Paid: true,
				PaymentDate: "2024-04-18", PaymentMode: "Cash",
			},
			AdmissionNumber: "SL20240001",
			StudentName:     "Aryan Kumar",
		},
		{
			Fee: core.FeeRecord{
				ID: 13, StudentID: 1, Month: 5, Year: 2024,
				Amount: core.Money{Paise: 90000},
			},
			AdmissionNumber: "SL20240001",
			StudentName:     "Aryan Kumar",
		},
	}

	var buf bytes.Buffer
	if err := WriteFeesCSV(&buf, fees); err != nil {
		t.Fatalf("WriteFeesCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want header + 2 rows", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Fee ID,Student Admission No,Student Name,Month,Year") {
		t.Errorf("header wrong: %q", lines[0])
	}
	if !strings.Contains(lines[1], "April") || !strings.Contains(lines[1], "Yes") {
		t.Errorf("paid row wrong: %q", lines[1])
	}
	if !strings.Contains(lines[2], "May") || !strings.Contains(lines[2], "No") {
		t.Errorf("unpaid row wrong: %q", lines[2])
	}
}
