// Package mapper holds the pure field transformations between the
// normalized directory and CRM contact representations. Nothing here
// performs I/O; the engine applies the results.
package mapper

import (
	"fmt"
	"strings"

	"github.com/meshline/contactsync/internal/crm"
	"github.com/meshline/contactsync/pkg/types"
)

// DefaultGender is the fixed gender category forced onto every synced CRM
// contact. Gender is never synced bidirectionally.
const DefaultGender = "O"

// ContactPayload builds the CRM create/update payload for a directory
// contact. existing is the current CRM contact for updates (its deceased
// data is preserved) and nil for creates. Contacts without any usable
// name are rejected with types.ErrUnnamedContact.
func ContactPayload(source types.Contact, existing *types.Contact, cfg types.Config) (crm.ContactRequest, error) {
	first, last := splitName(source.Name)
	if first == "" {
		// Fall back to the display name; the CRM requires a first name.
		first = source.DisplayName()
		last = ""
	}
	if first == "" {
		return crm.ContactRequest{}, fmt.Errorf("contact %s: %w", source.ID, types.ErrUnnamedContact)
	}

	req := crm.ContactRequest{
		FirstName:  first,
		MiddleName: source.Name.Middle,
		LastName:   last,
		Nickname:   source.Name.Nickname,
		GenderType: DefaultGender,
	}

	if source.Birthday.Known() {
		birthday := NormalizeBirthday(*source.Birthday)
		req.IsBirthdateKnown = true
		req.BirthdateDay = birthday.Day
		req.BirthdateMonth = birthday.Month
		req.BirthdateYear = birthday.Year
		req.BirthdateAddReminder = cfg.CreateReminders
	}

	// Deceased data lives on the CRM only; absence on the source side
	// must never clear it. The block mirrors PayloadFor exactly so that
	// an untouched contact compares equal and triggers no update.
	if existing != nil && existing.IsDead {
		req.IsDeceased = true
		req.DeceasedDateIsAgeBased = existing.DeceasedAgeBased
		req.DeceasedDateAddReminder = cfg.CreateReminders
		if existing.Deceased.Known() {
			req.IsDeceasedDateKnown = true
			req.DeceasedDateDay = existing.Deceased.Day
			req.DeceasedDateMonth = existing.Deceased.Month
			req.DeceasedDateYear = existing.Deceased.Year
		}
	}

	return req, nil
}

// PayloadFor builds the comparison payload for an existing CRM contact so
// the engine can detect whether an update would change anything.
func PayloadFor(target types.Contact, cfg types.Config) crm.ContactRequest {
	req := crm.ContactRequest{
		FirstName:  target.Name.First,
		MiddleName: target.Name.Middle,
		LastName:   target.Name.Last,
		Nickname:   target.Name.Nickname,
		GenderType: DefaultGender,
	}
	if target.Birthday.Known() {
		req.IsBirthdateKnown = true
		req.BirthdateDay = target.Birthday.Day
		req.BirthdateMonth = target.Birthday.Month
		req.BirthdateYear = target.Birthday.Year
		req.BirthdateAddReminder = cfg.CreateReminders
	}
	if target.IsDead {
		req.IsDeceased = true
		req.DeceasedDateIsAgeBased = target.DeceasedAgeBased
		req.DeceasedDateAddReminder = cfg.CreateReminders
		if target.Deceased.Known() {
			req.IsDeceasedDateKnown = true
			req.DeceasedDateDay = target.Deceased.Day
			req.DeceasedDateMonth = target.Deceased.Month
			req.DeceasedDateYear = target.Deceased.Year
		}
	}
	return req
}

// SourceContact builds the directory contact replicated from a CRM-only
// contact during back-sync. Only enabled field categories are carried.
func SourceContact(target types.Contact, cfg types.Config) (types.Contact, error) {
	if target.Name.Empty() {
		return types.Contact{}, fmt.Errorf("contact %s: %w", target.ID, types.ErrUnnamedContact)
	}

	source := types.Contact{
		Name: types.Name{
			First:    target.Name.First,
			Middle:   target.Name.Middle,
			Last:     target.Name.Last,
			Nickname: target.Name.Nickname,
			Display:  target.DisplayName(),
		},
	}

	// Age-based birthdays cannot be represented as calendar dates on the
	// directory side and are dropped.
	if target.Birthday.Known() {
		b := *target.Birthday
		source.Birthday = &b
	}
	if cfg.Fields.Career {
		source.JobTitle = target.JobTitle
		source.Company = target.Company
	}
	if cfg.Fields.Address {
		for _, a := range target.Addresses {
			a.ID = ""
			source.Addresses = append(source.Addresses, a)
		}
	}
	if cfg.Fields.Phone {
		source.Phones = append(source.Phones, target.Phones...)
	}
	if cfg.Fields.Email {
		source.Emails = append(source.Emails, target.Emails...)
	}
	if cfg.Fields.Labels {
		source.Labels = append(source.Labels, target.Labels...)
	}
	return source, nil
}

// splitName folds honorific prefix and suffix into the first and last
// name, since the CRM has no separate fields for them.
func splitName(n types.Name) (first, last string) {
	first = n.First
	last = n.Last
	if n.Prefix != "" && first != "" {
		first = strings.TrimSpace(n.Prefix + " " + first)
	}
	if n.Suffix != "" && last != "" {
		last = strings.TrimSpace(last + " " + n.Suffix)
	}
	return first, last
}

// NormalizeBirthday maps February 29 to March 1 whenever the target side
// has no leap-year-valid representation: the year is unknown (stored
// against a non-leap placeholder) or not a leap year.
func NormalizeBirthday(d types.Date) types.Date {
	if d.Month == 2 && d.Day == 29 && !isLeapYear(d.Year) {
		return types.Date{Year: d.Year, Month: 3, Day: 1}
	}
	return d
}

func isLeapYear(year int) bool {
	if year == 0 {
		return false
	}
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// Emails returns the trimmed email values of a contact.
func Emails(c types.Contact) []string {
	return values(c.Emails)
}

// Phones returns the trimmed phone values of a contact.
func Phones(c types.Contact) []string {
	return values(c.Phones)
}

func values(fields []types.LabeledValue) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if v := strings.TrimSpace(f.Value); v != "" {
			out = append(out, v)
		}
	}
	return out
}
