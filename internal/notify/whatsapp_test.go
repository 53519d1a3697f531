package notify

import (
	"net/url"
	"strings"
	"testing"

	"tuition/internal/core"
)

var testInstitute = core.InstituteInfo{
	Name:    "SANSA LEARN",
	Address: "Chandmari Road, Kankarbagh",
	Contact: "9296820840, 9153021229",
}

var testStudent = core.Student{
	AdmissionNumber: "SL20240001",
	Name:            "Aryan Kumar",
	Class:           "8",
	Mobile1:         "9876543210",
}

func TestNormalizeMobile(t *testing.T) {
	tests := []struct {
		name   string
		mobile string
		want   string
	}{
		{"plain", "9876543210", "9876543210"},
		{"country prefix", "+919876543210", "9876543210"},
		{"spaces", " 98765 43210 ", "9876543210"},
		{"dashes", "98765-43210", "9876543210"},
		{"mixed", " +91 98765-43210", "9876543210"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeMobile(tt.mobile); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func decodeMessage(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	if err != nil {
		t.Fatalf("parse link %q: %v", link, err)
	}
	return u.Query().Get("text")
}

func TestDemandReminder(t *testing.T) {
	summary := core.UnpaidSummary{
		Items: []core.UnpaidItem{
			{MonthName: "January", Month: 1, Year: 2024, Amount: core.Money{Paise: 50000}},
			{MonthName: "March", Month: 3, Year: 2024, Amount: core.Money{Paise: 45000}},
		},
		TotalDue: core.Money{Paise: 95000},
	}

	link := DemandReminder(testStudent, summary, testInstitute, "https://example.com/d/abc")

	if !strings.HasPrefix(link, "https://wa.me/919876543210?text=") {
		t.Fatalf("link has wrong shape: %q", link)
	}
	if strings.Contains(link, "+") {
		t.Errorf("link must not contain plus signs: %q", link)
	}

	msg := decodeMessage(t, link)
	for _, want := range []string{
		"SANSA LEARN",
		"Aryan Kumar",
		"SL20240001",
		"January 2024 - Rs 500.00",
		"March 2024 - Rs 450.00",
		"Total Amount Due: Rs 950.00",
		"https://example.com/d/abc",
		"Chandmari Road, Kankarbagh",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestDemandReminderAllClear(t *testing.T) {
	link := DemandReminder(testStudent, core.UnpaidSummary{}, testInstitute, "")
	msg := decodeMessage(t, link)
	if !strings.Contains(msg, "All fees are up to date!") {
		t.Errorf("all-clear message missing:\n%s", msg)
	}
	if strings.Contains(msg, "Download Demand Notice") {
		t.Errorf("document link appeared without a URL:\n%s", msg)
	}
}

func TestDemandReminderEmptyMobile(t *testing.T) {
	student := testStudent
	student.Mobile1 = ""
	if link := DemandReminder(student, core.UnpaidSummary{}, testInstitute, ""); link != "" {
		t.Errorf("got %q, want empty link for empty mobile", link)
	}
}

func TestRegistrationWelcome(t *testing.T) {
	link := RegistrationWelcome(testStudent, testInstitute, "https://example.com/card/abc")

	if !strings.HasPrefix(link, "https://wa.me/919876543210?text=") {
		t.Fatalf("link has wrong shape: %q", link)
	}

	msg := decodeMessage(t, link)
	for _, want := range []string{
		"REGISTRATION SUCCESSFUL!",
		"Aryan Kumar",
		"*SL20240001*",
		"Class: 8",
		"https://example.com/card/abc",
		"SANSA LEARN",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestRegistrationWelcomeEmptyMobile(t *testing.T) {
	student := testStudent
	student.Mobile1 = "   "
	if link := RegistrationWelcome(student, testInstitute, ""); link != "" {
		t.Errorf("got %q, want empty link for blank mobile", link)
	}
}
