// Package notify builds shareable WhatsApp deep links. It only
// constructs URLs; nothing here sends a message.
package notify

import (
	"net/url"
	"strings"

	"tuition/internal/core"
)

const waBase = "https://wa.me/91"

// NormalizeMobile strips the +91 country prefix, spaces and dashes so
// the number slots into a wa.me link.
func NormalizeMobile(mobile string) string {
	m := strings.TrimSpace(mobile)
	m = strings.ReplaceAll(m, "+91", "")
	m = strings.ReplaceAll(m, " ", "")
	m = strings.ReplaceAll(m, "-", "")
	return m
}

// link assembles the wa.me URL for a normalized mobile and a plain-text
// message. WhatsApp renders %20 but shows literal plus signs, so the
// query escaping is adjusted.
func link(mobile, message string) string {
	encoded := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return waBase + mobile + "?text=" + encoded
}

// DemandReminder builds the fee-reminder link for a student. An empty
// mobile yields an empty URL: the caller simply hides the share button.
// documentURL, when set, is appended so the parent can download the
// demand notice without logging in.
func DemandReminder(student core.Student, summary core.UnpaidSummary, info core.InstituteInfo, documentURL string) string {
	mobile := NormalizeMobile(student.Mobile1)
	if mobile == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("*Greetings from " + info.Name + "*\n\n")
	b.WriteString("Dear Parent/Guardian,\n\n")
	b.WriteString("This is a courteous reminder regarding the tuition fee status for your ward.\n\n")
	b.WriteString("*Student Details:*\n")
	b.WriteString("Name: " + student.Name + "\n")
	b.WriteString("Admission No: " + student.AdmissionNumber + "\n\n")
	b.WriteString("*Outstanding Fee Details:*\n")

	if len(summary.Items) > 0 {
		for _, item := range summary.Items {
			b.WriteString("- " + item.Label() + "\n")
		}
		b.WriteString("\n*Total Amount Due: " + summary.TotalDue.String() + "*\n")
	} else {
		b.WriteString("All fees are up to date!\n")
	}

	if documentURL != "" {
		b.WriteString("\nDownload Demand Notice:\n" + documentURL + "\n")
	}

	b.WriteString("\nKindly clear the outstanding amount at your earliest convenience. ")
	b.WriteString("For any queries, feel free to contact us.\n\n")
	b.WriteString("Thank you for your cooperation.\n\n")
	writeSignature(&b, info)

	return link(mobile, b.String())
}

// RegistrationWelcome builds the welcome link sent after a successful
// registration. An empty mobile yields an empty URL.
func RegistrationWelcome(student core.Student, info core.InstituteInfo, documentURL string) string {
	mobile := NormalizeMobile(student.Mobile1)
	if mobile == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString("*REGISTRATION SUCCESSFUL!*\n\n")
	b.WriteString("*" + info.Name + "*\n\n")
	b.WriteString("Dear Parents,\n\n")
	b.WriteString("We are delighted to welcome *" + student.Name + "* to the " + info.Name + " family!\n\n")
	b.WriteString("*Registration Details:*\n")
	b.WriteString("Student: " + student.Name + "\n")
	b.WriteString("Admission No: *" + student.AdmissionNumber + "*\n")
	b.WriteString("Class: " + student.Class + "\n")

	if documentURL != "" {
		b.WriteString("\n*Download Registration Card:*\n" + documentURL + "\n")
	}

	b.WriteString("\nThank you for trusting us with your child's education!\n\n")
	writeSignature(&b, info)

	return link(mobile, b.String())
}

func writeSignature(b *strings.Builder, info core.InstituteInfo) {
	b.WriteString("*" + info.Name + "*\n")
	if info.Address != "" {
		b.WriteString(info.Address + "\n")
	}
	if info.Contact != "" {
		b.WriteString(info.Contact + "\n")
	}
}
