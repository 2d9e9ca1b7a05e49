// Detail sync: the per-category reconciliation of career, addresses,
// emails, phones, labels, and the synced note. Each category compares the
// desired state derived from the source against the CRM state and issues
// only the calls needed to close the gap.
package engine

import (
	"context"

	"github.com/meshline/contactsync/internal/mapper"
	"github.com/meshline/contactsync/pkg/types"
)

// syncDetails reconciles every enabled field category and reports whether
// any CRM call was issued.
func (e *Engine) syncDetails(ctx context.Context, source, target types.Contact) (bool, error) {
	mutated := false

	if e.cfg.Fields.Career {
		changed, err := e.syncCareer(ctx, source, target)
		if err != nil {
			return mutated, err
		}
		mutated = mutated || changed
	}
	if e.cfg.Fields.Address {
		changed, err := e.syncAddresses(ctx, source, target)
		if err != nil {
			return mutated, err
		}
		mutated = mutated || changed
	}
	if e.cfg.Fields.Email {
		changed, err := e.syncFields(ctx, target.ID, "email", mapper.Emails(source))
		if err != nil {
			return mutated, err
		}
		mutated = mutated || changed
	}
	if e.cfg.Fields.Phone {
		changed, err := e.syncFields(ctx, target.ID, "phone", mapper.Phones(source))
		if err != nil {
			return mutated, err
		}
		mutated = mutated || changed
	}
	if e.cfg.Fields.Labels {
		changed, err := e.syncLabels(ctx, source, target)
		if err != nil {
			return mutated, err
		}
		mutated = mutated || changed
	}
	if e.cfg.Fields.Notes {
		changed, err := e.syncNote(ctx, source, target)
		if err != nil {
			return mutated, err
		}
		mutated = mutated || changed
	}
	return mutated, nil
}

func (e *Engine) syncCareer(ctx context.Context, source, target types.Contact) (bool, error) {
	if source.JobTitle == target.JobTitle && source.Company == target.Company {
		return false, nil
	}
	if _, err := e.crm.UpdateCareer(ctx, target.ID, source.JobTitle, source.Company); err != nil {
		return false, err
	}
	return true, nil
}

// syncAddresses replaces the full CRM address set when it differs. The
// CRM has no address update call, so a change means delete and recreate.
func (e *Engine) syncAddresses(ctx context.Context, source, target types.Contact) (bool, error) {
	desired := mapper.Addresses(source, e.cfg.StreetReversal)
	if mapper.AddressesEqual(desired, target.Addresses) {
		return false, nil
	}
	for _, a := range target.Addresses {
		if err := e.crm.DeleteAddress(ctx, a.ID); err != nil {
			return true, err
		}
	}
	for _, a := range desired {
		if err := e.crm.CreateAddress(ctx, target.ID, a); err != nil {
			return true, err
		}
	}
	return true, nil
}

// syncFields reconciles one contact field type (email or phone) by set
// difference: create values the CRM lacks, delete values the source no
// longer has. Fields of other types are left alone.
func (e *Engine) syncFields(ctx context.Context, targetID, fieldType string, desired []string) (bool, error) {
	existing, err := e.crm.ContactFields(ctx, targetID)
	if err != nil {
		return false, err
	}

	present := make(map[string]bool)
	mutated := false
	for _, f := range existing {
		if f.Type != fieldType {
			continue
		}
		if contains(desired, f.Content) {
			present[f.Content] = true
			continue
		}
		if err := e.crm.DeleteField(ctx, f.ID); err != nil {
			return true, err
		}
		mutated = true
	}
	for _, v := range desired {
		if present[v] {
			continue
		}
		if err := e.crm.CreateField(ctx, targetID, fieldType, v); err != nil {
			return true, err
		}
		mutated = true
	}
	return mutated, nil
}

// syncLabels adds source labels the CRM contact is missing. Labels are
// never removed; tags set natively on the CRM stay.
func (e *Engine) syncLabels(ctx context.Context, source, target types.Contact) (bool, error) {
	var missing []string
	for _, l := range source.Labels {
		if !target.HasLabel(l) {
			missing = append(missing, l)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}
	if err := e.crm.AddTags(ctx, target.ID, missing); err != nil {
		return false, err
	}
	return true, nil
}

// syncNote reconciles the single sync-owned note. Notes written natively
// on the CRM are never touched; the owned slot is recognized by its
// marker.
func (e *Engine) syncNote(ctx context.Context, source, target types.Contact) (bool, error) {
	var body string
	if len(source.Notes) > 0 {
		body = mapper.SyncedNoteBody(source.Notes[0].Body)
	}

	notes, err := e.crm.Notes(ctx, target.ID)
	if err != nil {
		return false, err
	}
	var owned *types.Note
	for i := range notes {
		if mapper.IsSyncedNote(notes[i].Body) {
			owned = &notes[i]
			break
		}
	}

	switch {
	case body == "" && owned == nil:
		return false, nil
	case body == "":
		return true, e.crm.DeleteNote(ctx, owned.ID)
	case owned == nil:
		return true, e.crm.CreateNote(ctx, target.ID, body)
	case owned.Body == body:
		return false, nil
	default:
		return true, e.crm.UpdateNote(ctx, owned.ID, target.ID, body)
	}
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
