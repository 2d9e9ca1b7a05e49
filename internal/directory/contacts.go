// Contact listing and CRUD against the directory API, including the wire
// representation and its conversion to the normalized Contact.
package directory

import (
	"context"
	"fmt"
	"time"

	"github.com/meshline/contactsync/pkg/types"
)

// wireContact is the directory's JSON contact resource.
type wireContact struct {
	ID    string `json:"id"`
	Names struct {
		Given    string `json:"given"`
		Middle   string `json:"middle"`
		Family   string `json:"family"`
		Display  string `json:"display"`
		Prefix   string `json:"prefix"`
		Suffix   string `json:"suffix"`
		Nickname string `json:"nickname"`
	} `json:"names"`
	Birthday     *wireDate `json:"birthday,omitempty"`
	Organization *struct {
		Company    string `json:"company"`
		Department string `json:"department"`
		Title      string `json:"title"`
	} `json:"organization,omitempty"`
	Addresses []wireAddress      `json:"addresses,omitempty"`
	Phones    []wireLabeledValue `json:"phones,omitempty"`
	Emails    []wireLabeledValue `json:"emails,omitempty"`
	Labels    []string           `json:"labels,omitempty"`
	Note      string             `json:"note,omitempty"`
	UpdatedAt time.Time          `json:"updated_at"`
	Deleted   bool               `json:"deleted,omitempty"`
}

type wireDate struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

type wireAddress struct {
	Type        string `json:"type"`
	Street      string `json:"street"`
	City        string `json:"city"`
	Extended    string `json:"extended,omitempty"`
	Region      string `json:"region"`
	PostalCode  string `json:"postal_code"`
	CountryCode string `json:"country_code"`
}

type wireLabeledValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type listResponse struct {
	Contacts      []wireContact `json:"contacts"`
	NextPageToken string        `json:"next_page_token"`
	NextSyncToken string        `json:"next_sync_token"`
}

// ListAll fetches every directory contact, following pagination, and
// returns the fresh sync token issued with the final page.
func (c *Client) ListAll(ctx context.Context) ([]types.Contact, string, error) {
	return c.list(ctx, "")
}

// ListChanged fetches only contacts changed or deleted since the given
// sync token. Deleted records come back as tombstones (Deleted true).
// A token rejected by the directory surfaces as types.ErrCursorExpired.
func (c *Client) ListChanged(ctx context.Context, syncToken string) ([]types.Contact, string, error) {
	if syncToken == "" {
		return nil, "", fmt.Errorf("listing changed contacts: %w", types.ErrCursorExpired)
	}
	return c.list(ctx, syncToken)
}

func (c *Client) list(ctx context.Context, syncToken string) ([]types.Contact, string, error) {
	var contacts []types.Contact
	pageToken := ""
	page := 0
	for {
		page++
		var resp listResponse
		path := c.listPath(pageToken, syncToken, true)
		if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
			return nil, "", fmt.Errorf("fetching directory page %d: %w", page, err)
		}
		for _, wc := range resp.Contacts {
			contacts = append(contacts, wc.toContact())
		}
		if resp.NextPageToken == "" {
			c.log.Debug().Int("pages", page).Int("contacts", len(contacts)).
				Msg("finished fetching directory contacts")
			return contacts, resp.NextSyncToken, nil
		}
		pageToken = resp.NextPageToken
	}
}

// Get fetches a single contact by id.
func (c *Client) Get(ctx context.Context, id string) (types.Contact, error) {
	var wc wireContact
	if err := c.do(ctx, "GET", "/contacts/"+id, nil, &wc); err != nil {
		return types.Contact{}, fmt.Errorf("fetching directory contact %s: %w", id, err)
	}
	return wc.toContact(), nil
}

// Create uploads a new contact and returns it with its assigned id.
func (c *Client) Create(ctx context.Context, contact types.Contact) (types.Contact, error) {
	var created wireContact
	if err := c.do(ctx, "POST", "/contacts", fromContact(contact), &created); err != nil {
		return types.Contact{}, fmt.Errorf("creating directory contact %q: %w", contact.DisplayName(), err)
	}
	c.log.Info().Str("source_id", created.ID).Str("name", created.Names.Display).
		Msg("directory contact created")
	return created.toContact(), nil
}

// Update replaces the contact stored under contact.ID.
func (c *Client) Update(ctx context.Context, contact types.Contact) (types.Contact, error) {
	var updated wireContact
	if err := c.do(ctx, "PUT", "/contacts/"+contact.ID, fromContact(contact), &updated); err != nil {
		return types.Contact{}, fmt.Errorf("updating directory contact %s: %w", contact.ID, err)
	}
	return updated.toContact(), nil
}

// Delete removes the contact with the given id.
func (c *Client) Delete(ctx context.Context, id, displayName string) error {
	if err := c.do(ctx, "DELETE", "/contacts/"+id, nil, nil); err != nil {
		return fmt.Errorf("deleting directory contact %s: %w", id, err)
	}
	c.log.Info().Str("source_id", id).Str("name", displayName).
		Msg("directory contact deleted")
	return nil
}

func (wc wireContact) toContact() types.Contact {
	contact := types.Contact{
		ID: wc.ID,
		Name: types.Name{
			First:    wc.Names.Given,
			Middle:   wc.Names.Middle,
			Last:     wc.Names.Family,
			Nickname: wc.Names.Nickname,
			Display:  wc.Names.Display,
			Prefix:   wc.Names.Prefix,
			Suffix:   wc.Names.Suffix,
		},
		Labels:    wc.Labels,
		UpdatedAt: wc.UpdatedAt,
		Deleted:   wc.Deleted,
	}
	if wc.Birthday != nil {
		contact.Birthday = &types.Date{Year: wc.Birthday.Year, Month: wc.Birthday.Month, Day: wc.Birthday.Day}
	}
	if wc.Organization != nil {
		contact.Company = wc.Organization.Company
		if wc.Organization.Department != "" {
			contact.Company += "; " + wc.Organization.Department
		}
		contact.JobTitle = wc.Organization.Title
	}
	for _, a := range wc.Addresses {
		city := a.City
		if a.Extended != "" {
			if city != "" {
				city += " "
			}
			city += a.Extended
		}
		contact.Addresses = append(contact.Addresses, types.Address{
			Label:       a.Type,
			Street:      a.Street,
			City:        city,
			Province:    a.Region,
			PostalCode:  a.PostalCode,
			CountryCode: a.CountryCode,
		})
	}
	for _, p := range wc.Phones {
		contact.Phones = append(contact.Phones, types.LabeledValue{Label: p.Type, Value: p.Value})
	}
	for _, e := range wc.Emails {
		contact.Emails = append(contact.Emails, types.LabeledValue{Label: e.Type, Value: e.Value})
	}
	if wc.Note != "" {
		contact.Notes = []types.Note{{Body: wc.Note}}
	}
	return contact
}

func fromContact(contact types.Contact) wireContact {
	var wc wireContact
	wc.ID = contact.ID
	wc.Names.Given = contact.Name.First
	wc.Names.Middle = contact.Name.Middle
	wc.Names.Family = contact.Name.Last
	wc.Names.Nickname = contact.Name.Nickname
	wc.Names.Display = contact.Name.Display
	wc.Names.Prefix = contact.Name.Prefix
	wc.Names.Suffix = contact.Name.Suffix
	if contact.Birthday != nil {
		wc.Birthday = &wireDate{Year: contact.Birthday.Year, Month: contact.Birthday.Month, Day: contact.Birthday.Day}
	}
	if contact.Company != "" || contact.JobTitle != "" {
		wc.Organization = &struct {
			Company    string `json:"company"`
			Department string `json:"department"`
			Title      string `json:"title"`
		}{Company: contact.Company, Title: contact.JobTitle}
	}
	for _, a := range contact.Addresses {
		wc.Addresses = append(wc.Addresses, wireAddress{
			Type:        a.Label,
			Street:      a.Street,
			City:        a.City,
			Region:      a.Province,
			PostalCode:  a.PostalCode,
			CountryCode: a.CountryCode,
		})
	}
	for _, p := range contact.Phones {
		wc.Phones = append(wc.Phones, wireLabeledValue{Type: p.Label, Value: p.Value})
	}
	for _, e := range contact.Emails {
		wc.Emails = append(wc.Emails, wireLabeledValue{Type: e.Label, Value: e.Value})
	}
	wc.Labels = contact.Labels
	if len(contact.Notes) > 0 {
		wc.Note = contact.Notes[0].Body
	}
	return wc
}
