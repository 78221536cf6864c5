package services

import (
	"sort"
	"time"

	"otoil-backend/models"
	"otoil-backend/utils"
)

const (
	// ServiceIntervalMonths is the gap between two maintenance visits.
	ServiceIntervalMonths = 6
	// ReminderWindowDays is how far ahead a coming service becomes a reminder.
	ReminderWindowDays = 7
)

type Urgency string

const (
	UrgencyNone     Urgency = "NONE"
	UrgencyOverdue  Urgency = "OVERDUE"
	UrgencyDueToday Urgency = "DUE_TODAY"
	UrgencyDueSoon  Urgency = "DUE_SOON"
)

var urgencyLabels = map[Urgency]string{
	UrgencyOverdue:  "BAKIM TARİHİ GEÇMİŞ!",
	UrgencyDueToday: "BUGÜN BAKIM GÜNÜ!",
	UrgencyDueSoon:  "Yaklaşıyor",
}

// Label is the badge text shown next to a reminder.
func (u Urgency) Label() string {
	return urgencyLabels[u]
}

// Reminder is a record that falls inside the reminder window.
type Reminder struct {
	Record    models.ServiceRecord `json:"record"`
	Urgency   Urgency              `json:"urgency"`
	Label     string               `json:"label"`
	DaysUntil int                  `json:"daysUntil"`
}

// DeriveNextServiceDate advances serviceDate by six calendar months. Days that
// do not exist in the target month roll over, so Aug 31 becomes Mar 3.
func DeriveNextServiceDate(serviceDate time.Time) time.Time {
	return serviceDate.AddDate(0, ServiceIntervalMonths, 0)
}

// Classify compares the record's next service date with today by calendar
// date in today's location.
func Classify(record models.ServiceRecord, today time.Time) Urgency {
	if record.NextServiceDate == nil {
		return UrgencyNone
	}
	days := daysUntil(*record.NextServiceDate, today)
	switch {
	case days < 0:
		return UrgencyOverdue
	case days == 0:
		return UrgencyDueToday
	case days <= ReminderWindowDays:
		return UrgencyDueSoon
	default:
		return UrgencyNone
	}
}

// daysUntil counts calendar days from today to next, both truncated to
// midnight in today's location.
func daysUntil(next, today time.Time) int {
	return -utils.DaysBetween(next, today)
}

// FilterReminders keeps records whose next service date is at most seven days
// after today. There is no lower bound, so overdue records stay in.
func FilterReminders(records []models.ServiceRecord, today time.Time) []models.ServiceRecord {
	out := make([]models.ServiceRecord, 0, len(records))
	for _, r := range records {
		if Classify(r, today) != UrgencyNone {
			out = append(out, r)
		}
	}
	return out
}

// SortReminders orders overdue records first, then everything else, each tier
// ascending by next service date. Records with equal keys keep their input
// order. The input slice is not modified.
func SortReminders(records []models.ServiceRecord, today time.Time) []models.ServiceRecord {
	out := make([]models.ServiceRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		oi := Classify(out[i], today) == UrgencyOverdue
		oj := Classify(out[j], today) == UrgencyOverdue
		if oi != oj {
			return oi
		}
		return nextServiceBefore(out[i], out[j])
	})
	return out
}

func nextServiceBefore(a, b models.ServiceRecord) bool {
	switch {
	case a.NextServiceDate == nil:
		return false
	case b.NextServiceDate == nil:
		return true
	default:
		return a.NextServiceDate.Before(*b.NextServiceDate)
	}
}

// BuildReminders filters, sorts and classifies records in one pass.
func BuildReminders(records []models.ServiceRecord, today time.Time) []Reminder {
	sorted := SortReminders(FilterReminders(records, today), today)
	reminders := make([]Reminder, 0, len(sorted))
	for _, r := range sorted {
		urgency := Classify(r, today)
		reminders = append(reminders, Reminder{
			Record:    r,
			Urgency:   urgency,
			Label:     urgency.Label(),
			DaysUntil: daysUntil(*r.NextServiceDate, today),
		})
	}
	return reminders
}
