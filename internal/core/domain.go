package core

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar date form used everywhere a date crosses
	// a boundary: request payloads, stored columns, snapshot documents.
	DateLayout = "2006-01-02"

	// DefaultPaymentMode is stamped when a fee is toggled to paid without
	// an explicit mode. A later edit may override it.
	DefaultPaymentMode = "Cash"
)

type (
	// Money is an amount in paise. Negative values are legal: a discount
	// larger than the monthly fee yields a negative net fee, and the
	// ledger records it as-is rather than clamping.
	Money struct {
		Paise int64
	}

	// Student is an enrollment record. AdmissionNumber and ID are fixed at
	// registration; the billing parameters FeePerMonth and Discount only
	// affect fee records created after the change.
	Student struct {
		ID              int64
		AdmissionNumber string
		PhotoPath       string
		Name            string
		FatherName      string
		MotherName      string
		DOB             string
		Gender          string
		Class           string
		Board           string
		Medium          string
		SchoolName      string
		Address         string
		Mobile1         string
		Mobile2         string
		FeePerMonth     Money
		Discount        Money
		// AdmissionDate is kept as the raw stored string. Legacy rows may
		// hold an empty or unparseable value; the ledger treats those as
		// "do not generate" rather than an error.
		AdmissionDate string
		OtherDetails  string
		CreatedAt     time.Time
	}

	// FeeRecord is the fee obligation of one student for one calendar
	// month. (StudentID, Month, Year) is unique per student.
	FeeRecord struct {
		ID          int64
		StudentID   int64
		Month       int // 1-12
		Year        int
		Amount      Money
		Paid        bool
		PaymentDate string
		PaymentMode string
		Remarks     string
		CreatedAt   time.Time
	}

	// InstituteInfo is the singleton configuration row consumed read-only
	// by document building.
	InstituteInfo struct {
		ID            int64
		Name          string
		Address       string
		Contact       string
		LogoPath      string
		SignaturePath string
	}

	// ManagerSession is one authenticated admin device. It is loaded per
	// request and passed explicitly into operations that need identity.
	ManagerSession struct {
		ID         int64
		SessionID  string
		IPAddress  string
		UserAgent  string
		DeviceName string
		OS         string
		Browser    string
		Active     bool
		CreatedAt  time.Time
		LastSeenAt time.Time
	}
)

var (
	ErrInvalidMonth  = errors.New("invalid month")
	ErrInvalidYear   = errors.New("invalid year")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidDate   = errors.New("invalid date")
	ErrEmptyName     = errors.New("empty student name")
	ErrNotFound      = errors.New("not found")
)

// monthNames is the fixed calendar table; index 0 is never a valid month.
var monthNames = [13]string{"", "January", "February", "March", "April",
	"May", "June", "July", "August", "September", "October", "November",
	"December"}

// MonthName returns the English name for month 1-12, or "" outside that
// range.
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month]
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NetFee is the amount a newly generated fee record carries: fee minus
// discount at the moment of creation. No clamping when discount exceeds
// the fee.
func (s Student) NetFee() Money {
	return Money{Paise: s.FeePerMonth.Paise - s.Discount.Paise}
}

func (s Student) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(s.FatherName) == "" {
		return errors.New("empty father name")
	}
	return nil
}

func (f FeeRecord) Validate() error {
	if f.Month < 1 || f.Month > 12 {
		return ErrInvalidMonth
	}
	if f.Year < 1000 || f.Year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// Label renders the record's period, e.g. "January 2024".
func (f FeeRecord) Label() string {
	return MonthName(f.Month) + " " + strconv.Itoa(f.Year)
}
