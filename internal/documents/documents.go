// Package documents builds the typed data behind printable artifacts:
// fee receipts, demand notices and registration cards. Builders return
// structured snapshots; rendering them is the caller's concern.
package documents

import (
	"fmt"
	"time"

	"tuition/internal/core"
)

// InstituteBlock is the letterhead shared by every document.
type InstituteBlock struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Contact string `json:"contact"`
}

// StudentBlock identifies the student a document is about.
type StudentBlock struct {
	AdmissionNumber string `json:"admission_number"`
	Name            string `json:"name"`
	FatherName      string `json:"father_name"`
	Class           string `json:"class"`
}

// Receipt is the data of one fee payment receipt.
type Receipt struct {
	ReceiptNumber string         `json:"receipt_number"`
	Date          string         `json:"date"`
	Institute     InstituteBlock `json:"institute"`
	Student       StudentBlock   `json:"student"`
	FeePeriod     string         `json:"fee_period"`
	AmountPaid    string         `json:"amount_paid"`
	PaymentMode   string         `json:"payment_mode"`
	Remarks       string         `json:"remarks,omitempty"`
}

// ReceiptNumber derives the fixed receipt identifier for a fee row:
// REC, the year, the zero-padded month, the zero-padded fee ID.
func ReceiptNumber(fee core.FeeRecord) string {
	return fmt.Sprintf("REC%d%02d%04d", fee.Year, fee.Month, fee.ID)
}

// BuildReceipt assembles the receipt for one fee row. The receipt date
// is the payment date when the row is paid, otherwise issuedAt.
func BuildReceipt(student core.Student, fee core.FeeRecord, info core.InstituteInfo, issuedAt time.Time) Receipt {
	date := fee.PaymentDate
	if date == "" {
		date = core.FormatDate(issuedAt)
	}
	return Receipt{
		ReceiptNumber: ReceiptNumber(fee),
		Date:          date,
		Institute:     instituteBlock(info),
		Student:       studentBlock(student),
		FeePeriod:     fee.Label(),
		AmountPaid:    fee.Amount.String(),
		PaymentMode:   fee.PaymentMode,
		Remarks:       fee.Remarks,
	}
}

// DueLine is one outstanding month on a demand notice.
type DueLine struct {
	Period string `json:"period"`
	Amount string `json:"amount"`
}

// DemandNotice is the data of one outstanding-dues notice.
type DemandNotice struct {
	Date      string         `json:"date"`
	Institute InstituteBlock `json:"institute"`
	Student   StudentBlock   `json:"student"`
	DueLines  []DueLine      `json:"due_lines"`
	TotalDue  string         `json:"total_due"`
	AllClear  bool           `json:"all_clear"`
}

// BuildDemandNotice assembles the dues notice from an unpaid summary.
// An empty summary still produces a notice, flagged all-clear.
func BuildDemandNotice(student core.Student, summary core.UnpaidSummary, info core.InstituteInfo, issuedAt time.Time) DemandNotice {
	notice := DemandNotice{
		Date:      core.FormatDate(issuedAt),
		Institute: instituteBlock(info),
		Student:   studentBlock(student),
		TotalDue:  summary.TotalDue.String(),
		AllClear:  len(summary.Items) == 0,
	}
	for _, item := range summary.Items {
		notice.DueLines = append(notice.DueLines, DueLine{
			Period: fmt.Sprintf("%s %d", item.MonthName, item.Year),
			Amount: item.Amount.String(),
		})
	}
	return notice
}

// RegistrationCard is the data of a new student's profile card.
type RegistrationCard struct {
	Date          string         `json:"date"`
	Institute     InstituteBlock `json:"institute"`
	Student       StudentBlock   `json:"student"`
	MotherName    string         `json:"mother_name"`
	DOB           string         `json:"dob"`
	Gender        string         `json:"gender"`
	Board         string         `json:"board"`
	Medium        string         `json:"medium"`
	SchoolName    string         `json:"school_name"`
	Address       string         `json:"address"`
	Mobile1       string         `json:"mobile1"`
	Mobile2       string         `json:"mobile2"`
	MonthlyFee    string         `json:"monthly_fee"`
	Discount      string         `json:"discount"`
	NetMonthlyFee string         `json:"net_monthly_fee"`
	AdmissionDate string         `json:"admission_date"`
}

// BuildRegistrationCard assembles the profile card for one student.
func BuildRegistrationCard(student core.Student, info core.InstituteInfo, issuedAt time.Time) RegistrationCard {
	return RegistrationCard{
		Date:          core.FormatDate(issuedAt),
		Institute:     instituteBlock(info),
		Student:       studentBlock(student),
		MotherName:    student.MotherName,
		DOB:           student.DOB,
		Gender:        student.Gender,
		Board:         student.Board,
		Medium:        student.Medium,
		SchoolName:    student.SchoolName,
		Address:       student.Address,
		Mobile1:       student.Mobile1,
		Mobile2:       student.Mobile2,
		MonthlyFee:    student.FeePerMonth.String(),
		Discount:      student.Discount.String(),
		NetMonthlyFee: student.NetFee().String(),
		AdmissionDate: student.AdmissionDate,
	}
}

func instituteBlock(info core.InstituteInfo) InstituteBlock {
	return InstituteBlock{Name: info.Name, Address: info.Address, Contact: info.Contact}
}

func studentBlock(s core.Student) StudentBlock {
	return StudentBlock{
		AdmissionNumber: s.AdmissionNumber,
		Name:            s.Name,
		FatherName:      s.FatherName,
		Class:           s.Class,
	}
}
