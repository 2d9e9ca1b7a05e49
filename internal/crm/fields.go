// Contact field (phone/email) and gender endpoints, with lazily cached id
// mappings.
package crm

import (
	"context"
	"fmt"
	"strconv"

	"github.com/meshline/contactsync/pkg/types"
)

// Field is one contact field row: an email address or phone number.
type Field struct {
	ID      string
	Type    string // "email" or "phone"
	Content string
}

type wireField struct {
	ID      int64  `json:"id"`
	Content string `json:"content"`
	Type    struct {
		ID   int64  `json:"id"`
		Type string `json:"type"`
	} `json:"contact_field_type"`
}

// ContactFields fetches all contact fields of a contact.
func (c *Client) ContactFields(ctx context.Context, contactID string) ([]Field, error) {
	var resp struct {
		Data []wireField `json:"data"`
	}
	if err := c.do(ctx, "GET", "/contacts/"+contactID+"/contactfields", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching crm contact fields for %s: %w", contactID, err)
	}
	fields := make([]Field, 0, len(resp.Data))
	for _, wf := range resp.Data {
		fields = append(fields, Field{
			ID:      strconv.FormatInt(wf.ID, 10),
			Type:    wf.Type.Type,
			Content: wf.Content,
		})
	}
	return fields, nil
}

// CreateField adds an email or phone field to a contact.
func (c *Client) CreateField(ctx context.Context, contactID, fieldType, content string) error {
	typeID, err := c.fieldTypeID(ctx, fieldType)
	if err != nil {
		return err
	}
	cid, err := strconv.ParseInt(contactID, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing crm contact id %q: %w", contactID, err)
	}
	payload := struct {
		ContactID          int64  `json:"contact_id"`
		ContactFieldTypeID int64  `json:"contact_field_type_id"`
		Data               string `json:"data"`
	}{ContactID: cid, ContactFieldTypeID: typeID, Data: content}

	if err := c.mutate(ctx, "POST", "/contactfields", payload, nil); err != nil {
		return fmt.Errorf("creating crm %s field for %s: %w", fieldType, contactID, err)
	}
	return nil
}

// DeleteField removes a contact field by id.
func (c *Client) DeleteField(ctx context.Context, fieldID string) error {
	if err := c.mutate(ctx, "DELETE", "/contactfields/"+fieldID, nil, nil); err != nil {
		return fmt.Errorf("deleting crm contact field %s: %w", fieldID, err)
	}
	return nil
}

// fieldTypeID resolves a field type name to the CRM's numeric id, fetching
// the mapping on first use.
func (c *Client) fieldTypeID(ctx context.Context, fieldType string) (int64, error) {
	if c.fieldTypeIDs == nil {
		var resp struct {
			Data []struct {
				ID   int64  `json:"id"`
				Type string `json:"type"`
			} `json:"data"`
		}
		if err := c.do(ctx, "GET", "/contactfieldtypes", nil, &resp); err != nil {
			return 0, fmt.Errorf("fetching crm contact field types: %w", err)
		}
		c.fieldTypeIDs = make(map[string]int64, len(resp.Data))
		for _, ft := range resp.Data {
			c.fieldTypeIDs[ft.Type] = ft.ID
		}
	}
	id, ok := c.fieldTypeIDs[fieldType]
	if !ok {
		return 0, fmt.Errorf("crm has no contact field type %q: %w", fieldType, types.ErrNotFound)
	}
	return id, nil
}

// resolveGender fills req.GenderID from req.GenderType, fetching the
// gender mapping on first use. An unknown category uploads without a
// gender rather than failing the record.
func (c *Client) resolveGender(ctx context.Context, req *ContactRequest) error {
	if req.GenderType == "" {
		return nil
	}
	if c.genderIDs == nil {
		var resp struct {
			Data []struct {
				ID   int64  `json:"id"`
				Type string `json:"type"`
			} `json:"data"`
		}
		if err := c.do(ctx, "GET", "/genders", nil, &resp); err != nil {
			return fmt.Errorf("fetching crm genders: %w", err)
		}
		c.genderIDs = make(map[string]int64, len(resp.Data))
		for _, g := range resp.Data {
			c.genderIDs[g.Type] = g.ID
		}
	}
	req.GenderID = c.genderIDs[req.GenderType]
	return nil
}
