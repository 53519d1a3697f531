package documents

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"tuition/internal/core"
	"tuition/internal/storage"
)

// WriteStudentsCSV streams the full student register as CSV.
func WriteStudentsCSV(w io.Writer, students []core.Student) error {
	cw := csv.NewWriter(w)

	header := []string{
		"ID", "Admission Number", "Name", "Father Name", "Mother Name",
		"DOB", "Gender", "Class", "Board", "Medium", "School Name",
		"Address", "Mobile 1", "Mobile 2", "Fee Per Month", "Discount",
		"Admission Date", "Other Details",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write students csv header: %w", err)
	}

	for _, s := range students {
		row := []string{
			strconv.FormatInt(s.ID, 10),
			s.AdmissionNumber,
			s.Name,
			s.FatherName,
			s.MotherName,
			s.DOB,
			s.Gender,
			s.Class,
			s.Board,
			s.Medium,
			s.SchoolName,
			s.Address,
			s.Mobile1,
			s.Mobile2,
			s.FeePerMonth.Decimal(),
			s.Discount.Decimal(),
			s.AdmissionDate,
			s.OtherDetails,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write student %d: %w", s.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// WriteFeesCSV streams the full fee ledger as CSV, one row per fee
// record joined with the owning student's identity.
func WriteFeesCSV(w io.Writer, fees []storage.JoinedFee) error {
	cw := csv.NewWriter(w)

	header := []string{
		"Fee ID", "Student Admission No", "Student Name", "Month", "Year",
		"Fee Amount", "Is Paid", "Payment Date", "Payment Mode", "Remarks",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write fees csv header: %w", err)
	}

	for _, jf := range fees {
		paid := "No"
		if jf.Fee.Paid {
			paid = "Yes"
		}
		row := []string{
			strconv.FormatInt(jf.Fee.ID, 10),
			jf.AdmissionNumber,
			jf.StudentName,
			core.MonthName(jf.Fee.Month),
			strconv.Itoa(jf.Fee.Year),
			jf.Fee.Amount.Decimal(),
			paid,
			jf.Fee.PaymentDate,
			jf.Fee.PaymentMode,
			jf.Fee.Remarks,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write fee %d: %w", jf.Fee.ID, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
