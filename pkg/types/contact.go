// Contact is the normalized record representation shared by the directory
// and CRM clients, the field mapper, and the reconciliation engine.
package types

import "time"

// Contact is a normalized bag of contact fields. Both remote services are
// converted into this shape at the client boundary; the mapper and engine
// never see wire formats.
type Contact struct {
	// ID is the remote identifier on whichever side the contact came from.
	ID string

	Name Name

	// Birthday may carry a zero Year for age-unknown contacts.
	Birthday *Date

	// Deceased is never synced from the directory side; the engine
	// preserves whatever the CRM holds.
	Deceased         *Date
	IsDead           bool
	DeceasedAgeBased bool

	JobTitle string
	Company  string

	Addresses []Address
	Phones    []LabeledValue
	Emails    []LabeledValue

	// Labels are free-text tags (directory contact groups, CRM tags).
	Labels []string

	// Notes holds free-text blocks. Directory contacts carry at most one;
	// CRM contacts may carry many, of which at most one is owned by the
	// sync (recognized by its body marker).
	Notes []Note

	// Gender is the remote gender category, e.g. "M", "F", "O".
	Gender string

	UpdatedAt time.Time

	// Deleted marks a tombstone in an incremental directory feed.
	Deleted bool
}

// Name holds the structured name parts of a contact.
type Name struct {
	First    string
	Middle   string
	Last     string
	Nickname string
	Display  string
	Prefix   string
	Suffix   string
}

// Empty reports whether no name part is set at all.
func (n Name) Empty() bool {
	return n.First == "" && n.Middle == "" && n.Last == "" &&
		n.Nickname == "" && n.Display == "" && n.Prefix == "" && n.Suffix == ""
}

// Date is a calendar date with an optional year. Year 0 means unknown.
type Date struct {
	Year  int
	Month int
	Day   int
}

// Known reports whether the date has at least month and day.
func (d *Date) Known() bool {
	return d != nil && d.Month != 0 && d.Day != 0
}

// Address is a labeled postal address. ID is set only on CRM-side
// addresses, where it is needed to delete the remote resource.
type Address struct {
	ID          string
	Label       string
	Street      string
	City        string
	Province    string
	PostalCode  string
	CountryCode string
}

// Empty reports whether every address component is blank.
func (a Address) Empty() bool {
	return a.Street == "" && a.City == "" && a.Province == "" &&
		a.PostalCode == "" && a.CountryCode == ""
}

// LabeledValue is a typed phone number or email address.
type LabeledValue struct {
	Label string
	Value string
}

// Note is a free-text block attached to a contact.
type Note struct {
	ID   string
	Body string
}

// DisplayName returns the best human-readable name for logging. It prefers
// the display name and falls back to joining the structured parts.
func (c *Contact) DisplayName() string {
	if c.Name.Display != "" {
		return c.Name.Display
	}
	name := c.Name.First
	if c.Name.Last != "" {
		if name != "" {
			name += " "
		}
		name += c.Name.Last
	}
	return name
}

// HasLabel reports whether the contact carries the given label.
func (c *Contact) HasLabel(label string) bool {
	for _, l := range c.Labels {
		if l == label {
			return true
		}
	}
	return false
}
