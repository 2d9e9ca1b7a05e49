// Address and tag endpoints.
package crm

import (
	"context"
	"fmt"
	"strconv"

	"github.com/meshline/contactsync/pkg/types"
)

// CreateAddress adds an address to a contact.
func (c *Client) CreateAddress(ctx context.Context, contactID string, addr types.Address) error {
	cid, err := strconv.ParseInt(contactID, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing crm contact id %q: %w", contactID, err)
	}
	payload := struct {
		ContactID  int64  `json:"contact_id"`
		Name       string `json:"name"`
		Street     string `json:"street,omitempty"`
		City       string `json:"city,omitempty"`
		Province   string `json:"province,omitempty"`
		PostalCode string `json:"postal_code,omitempty"`
		Country    string `json:"country,omitempty"`
	}{
		ContactID:  cid,
		Name:       addr.Label,
		Street:     addr.Street,
		City:       addr.City,
		Province:   addr.Province,
		PostalCode: addr.PostalCode,
		Country:    addr.CountryCode,
	}
	if err := c.mutate(ctx, "POST", "/addresses", payload, nil); err != nil {
		return fmt.Errorf("creating crm address for %s: %w", contactID, err)
	}
	return nil
}

// DeleteAddress removes an address by id.
func (c *Client) DeleteAddress(ctx context.Context, addressID string) error {
	if err := c.mutate(ctx, "DELETE", "/addresses/"+addressID, nil, nil); err != nil {
		return fmt.Errorf("deleting crm address %s: %w", addressID, err)
	}
	return nil
}

// AddTags assigns the given tag names to a contact. Tags the contact
// already carries are unaffected; the sync never removes tags.
func (c *Client) AddTags(ctx context.Context, contactID string, tags []string) error {
	payload := struct {
		Tags []string `json:"tags"`
	}{Tags: tags}
	if err := c.mutate(ctx, "POST", "/contacts/"+contactID+"/setTags", payload, nil); err != nil {
		return fmt.Errorf("assigning crm tags for %s: %w", contactID, err)
	}
	return nil
}
