// Note endpoints.
package crm

import (
	"context"
	"fmt"
	"strconv"

	"github.com/meshline/contactsync/pkg/types"
)

type wireNote struct {
	ID   int64  `json:"id"`
	Body string `json:"body"`
}

// Notes fetches all notes of a contact. Whether a note is the synced slot
// is decided by the caller from the body marker.
func (c *Client) Notes(ctx context.Context, contactID string) ([]types.Note, error) {
	var resp struct {
		Data []wireNote `json:"data"`
	}
	if err := c.do(ctx, "GET", "/contacts/"+contactID+"/notes", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching crm notes for %s: %w", contactID, err)
	}
	notes := make([]types.Note, 0, len(resp.Data))
	for _, wn := range resp.Data {
		notes = append(notes, types.Note{ID: strconv.FormatInt(wn.ID, 10), Body: wn.Body})
	}
	return notes, nil
}

type notePayload struct {
	ContactID int64  `json:"contact_id"`
	Body      string `json:"body"`
}

// CreateNote adds a note to a contact.
func (c *Client) CreateNote(ctx context.Context, contactID, body string) error {
	cid, err := strconv.ParseInt(contactID, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing crm contact id %q: %w", contactID, err)
	}
	if err := c.mutate(ctx, "POST", "/notes", notePayload{ContactID: cid, Body: body}, nil); err != nil {
		return fmt.Errorf("creating crm note for %s: %w", contactID, err)
	}
	return nil
}

// UpdateNote replaces the body of an existing note.
func (c *Client) UpdateNote(ctx context.Context, noteID, contactID, body string) error {
	cid, err := strconv.ParseInt(contactID, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing crm contact id %q: %w", contactID, err)
	}
	if err := c.mutate(ctx, "PUT", "/notes/"+noteID, notePayload{ContactID: cid, Body: body}, nil); err != nil {
		return fmt.Errorf("updating crm note %s: %w", noteID, err)
	}
	return nil
}

// DeleteNote removes a note by id.
func (c *Client) DeleteNote(ctx context.Context, noteID string) error {
	if err := c.mutate(ctx, "DELETE", "/notes/"+noteID, nil, nil); err != nil {
		return fmt.Errorf("deleting crm note %s: %w", noteID, err)
	}
	return nil
}
