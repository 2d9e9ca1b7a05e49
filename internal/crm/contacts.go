// Contact listing and CRUD against the CRM API.
package crm

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/meshline/contactsync/pkg/types"
)

// ContactRequest is the payload for creating or updating a CRM contact.
// The mapper builds it; the client resolves the gender category to the
// CRM's numeric id at upload time.
type ContactRequest struct {
	FirstName  string `json:"first_name"`
	MiddleName string `json:"middle_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	Nickname   string `json:"nickname,omitempty"`

	// GenderType is the category ("M", "F", "O"); resolved to gender_id
	// before upload and omitted from the JSON itself.
	GenderType string `json:"-"`
	GenderID   int64  `json:"gender_id,omitempty"`

	IsBirthdateKnown     bool `json:"is_birthdate_known"`
	BirthdateDay         int  `json:"birthdate_day,omitempty"`
	BirthdateMonth       int  `json:"birthdate_month,omitempty"`
	BirthdateYear        int  `json:"birthdate_year,omitempty"`
	BirthdateIsAgeBased  bool `json:"birthdate_is_age_based"`
	BirthdateAddReminder bool `json:"birthdate_add_reminder"`

	IsDeceased              bool `json:"is_deceased"`
	IsDeceasedDateKnown     bool `json:"is_deceased_date_known"`
	DeceasedDateDay         int  `json:"deceased_date_day,omitempty"`
	DeceasedDateMonth       int  `json:"deceased_date_month,omitempty"`
	DeceasedDateYear        int  `json:"deceased_date_year,omitempty"`
	DeceasedDateIsAgeBased  bool `json:"deceased_date_is_age_based"`
	DeceasedDateAddReminder bool `json:"deceased_date_add_reminder"`
}

// wireContact is the CRM's JSON contact resource.
type wireContact struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	MiddleName   string `json:"middle_name"`
	LastName     string `json:"last_name"`
	Nickname     string `json:"nickname"`
	CompleteName string `json:"complete_name"`
	GenderType   string `json:"gender_type"`
	IsDead       bool   `json:"is_dead"`
	Information  struct {
		Career struct {
			Job     string `json:"job"`
			Company string `json:"company"`
		} `json:"career"`
		Dates struct {
			Birthdate    wireDate `json:"birthdate"`
			DeceasedDate wireDate `json:"deceased_date"`
		} `json:"dates"`
	} `json:"information"`
	Addresses []wireAddress `json:"addresses"`
	Tags      []struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

type wireDate struct {
	Date          *string `json:"date"` // RFC 3339, nil when unknown
	IsAgeBased    bool    `json:"is_age_based"`
	IsYearUnknown bool    `json:"is_year_unknown"`
}

type wireAddress struct {
	ID         int64  `json:"id,omitempty"`
	Name       string `json:"name"`
	Street     string `json:"street"`
	City       string `json:"city"`
	Province   string `json:"province"`
	PostalCode string `json:"postal_code"`
	Country    *struct {
		ISO string `json:"iso"`
	} `json:"country"`
	ContactID int64 `json:"contact_id,omitempty"`
}

type contactData struct {
	Data wireContact `json:"data"`
}

type contactPage struct {
	Data []wireContact `json:"data"`
	Meta struct {
		LastPage int `json:"last_page"`
	} `json:"meta"`
}

// ListAll fetches every CRM contact, following pagination.
func (c *Client) ListAll(ctx context.Context) ([]types.Contact, error) {
	var contacts []types.Contact
	page := 1
	for {
		var resp contactPage
		if err := c.do(ctx, "GET", "/contacts?page="+strconv.Itoa(page), nil, &resp); err != nil {
			return nil, fmt.Errorf("fetching crm page %d: %w", page, err)
		}
		for _, wc := range resp.Data {
			contacts = append(contacts, wc.toContact())
		}
		if page >= resp.Meta.LastPage || resp.Meta.LastPage == 0 {
			c.log.Debug().Int("pages", page).Int("contacts", len(contacts)).
				Msg("finished fetching crm contacts")
			return contacts, nil
		}
		page++
	}
}

// Get fetches a single contact by id.
func (c *Client) Get(ctx context.Context, id string) (types.Contact, error) {
	var resp contactData
	if err := c.do(ctx, "GET", "/contacts/"+id, nil, &resp); err != nil {
		return types.Contact{}, fmt.Errorf("fetching crm contact %s: %w", id, err)
	}
	return resp.Data.toContact(), nil
}

// Create uploads a new contact and returns it with its assigned id.
func (c *Client) Create(ctx context.Context, req ContactRequest) (types.Contact, error) {
	if err := c.resolveGender(ctx, &req); err != nil {
		return types.Contact{}, err
	}
	var resp contactData
	if err := c.mutate(ctx, "POST", "/contacts", req, &resp); err != nil {
		return types.Contact{}, fmt.Errorf("creating crm contact %q: %w", req.FirstName, err)
	}
	contact := resp.Data.toContact()
	c.log.Info().Str("target_id", contact.ID).Str("name", contact.DisplayName()).
		Msg("crm contact created")
	return contact, nil
}

// Update replaces the contact stored under id and returns the result.
func (c *Client) Update(ctx context.Context, id string, req ContactRequest) (types.Contact, error) {
	if err := c.resolveGender(ctx, &req); err != nil {
		return types.Contact{}, err
	}
	var resp contactData
	if err := c.mutate(ctx, "PUT", "/contacts/"+id, req, &resp); err != nil {
		return types.Contact{}, fmt.Errorf("updating crm contact %s: %w", id, err)
	}
	contact := resp.Data.toContact()
	c.log.Info().Str("target_id", id).Str("name", contact.DisplayName()).
		Msg("crm contact updated")
	return contact, nil
}

// Delete removes the contact with the given id.
func (c *Client) Delete(ctx context.Context, id, displayName string) error {
	if err := c.mutate(ctx, "DELETE", "/contacts/"+id, nil, nil); err != nil {
		return fmt.Errorf("deleting crm contact %s: %w", id, err)
	}
	c.log.Info().Str("target_id", id).Str("name", displayName).
		Msg("crm contact deleted")
	return nil
}

// UpdateCareer sets job title and company for a contact.
func (c *Client) UpdateCareer(ctx context.Context, id, job, company string) (types.Contact, error) {
	payload := struct {
		Job     string `json:"job"`
		Company string `json:"company"`
	}{Job: job, Company: company}
	var resp contactData
	if err := c.mutate(ctx, "PUT", "/contacts/"+id+"/work", payload, &resp); err != nil {
		return types.Contact{}, fmt.Errorf("updating crm career for %s: %w", id, err)
	}
	return resp.Data.toContact(), nil
}

func (wc wireContact) toContact() types.Contact {
	contact := types.Contact{
		ID: strconv.FormatInt(wc.ID, 10),
		Name: types.Name{
			First:    wc.FirstName,
			Middle:   wc.MiddleName,
			Last:     wc.LastName,
			Nickname: wc.Nickname,
			Display:  wc.CompleteName,
		},
		Gender:    wc.GenderType,
		IsDead:    wc.IsDead,
		JobTitle:  wc.Information.Career.Job,
		Company:   wc.Information.Career.Company,
		UpdatedAt: wc.UpdatedAt,
	}
	contact.Birthday = wc.Information.Dates.Birthdate.toDate()
	contact.Deceased = wc.Information.Dates.DeceasedDate.toDate()
	contact.DeceasedAgeBased = wc.Information.Dates.DeceasedDate.IsAgeBased
	for _, a := range wc.Addresses {
		addr := types.Address{
			ID:         strconv.FormatInt(a.ID, 10),
			Label:      a.Name,
			Street:     a.Street,
			City:       a.City,
			Province:   a.Province,
			PostalCode: a.PostalCode,
		}
		if a.Country != nil {
			addr.CountryCode = a.Country.ISO
		}
		contact.Addresses = append(contact.Addresses, addr)
	}
	for _, t := range wc.Tags {
		contact.Labels = append(contact.Labels, t.Name)
	}
	return contact
}

// toDate converts a CRM date block to a calendar date. Age-based dates
// carry no usable calendar value and come back nil.
func (wd wireDate) toDate() *types.Date {
	if wd.Date == nil || wd.IsAgeBased {
		return nil
	}
	t, err := time.Parse(time.RFC3339, *wd.Date)
	if err != nil {
		return nil
	}
	d := &types.Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
	if wd.IsYearUnknown {
		d.Year = 0
	}
	return d
}
