package flow

import (
	"context"
	"errors"

	"github.com/hawraz/carsell-flow/internal/draft"
	"github.com/rs/zerolog/log"
)

// Contact is the contact step's form state.
type Contact struct {
	Phone            string   `json:"phone"`
	PhoneCountryCode string   `json:"phone_country_code"`
	ShowPhoneOnly    bool     `json:"show_phone_to_buyers_only"`
	ContactMethods   []string `json:"preferred_contact_methods"`
	Availability     string   `json:"availability,omitempty"`
	ExactAddress     string   `json:"exact_address,omitempty"`
}

// LoadContact returns the contact form defaults. In edit mode the existing
// listing's contact fields prefill the form; fetch failures fall back to
// the defaults.
func (f *Flow) LoadContact(ctx context.Context) *Contact {
	c := &Contact{PhoneCountryCode: "+964", ShowPhoneOnly: true}

	listingID := f.draft.ListingID()
	if !f.editMode() || listingID == 0 {
		return c
	}

	listing, err := f.svc.GetListing(ctx, listingID)
	if err != nil {
		log.Warn().Err(err).Int64("listingId", listingID).Msg("failed to load listing for contact prefill")
		return c
	}

	c.Phone = listing.Phone
	if listing.PhoneCountryCode != "" {
		c.PhoneCountryCode = listing.PhoneCountryCode
	}
	if listing.ShowPhoneOnly != nil {
		c.ShowPhoneOnly = *listing.ShowPhoneOnly
	}
	c.ContactMethods = listing.ContactMethods
	c.Availability = listing.Availability
	c.ExactAddress = listing.ExactAddress
	return c
}

// SubmitContact commits the contact details. The server-side patch is best
// effort: the flow continues to review even if it fails, the full state is
// written again on publish or save.
func (f *Flow) SubmitContact(ctx context.Context, c Contact) error {
	if c.Phone == "" {
		return errors.New(MsgMissingContactInfo)
	}

	f.draft.SetPhone(c.Phone)
	f.mirror(draft.KeyContact, c)

	listingID := f.draft.ListingID()
	if listingID == 0 {
		return nil
	}

	code := c.PhoneCountryCode
	if code == "" {
		code = "+1"
	}
	err := f.svc.UpdateDraftListing(ctx, listingID, map[string]any{
		"phone":                     c.Phone,
		"phone_country_code":        code,
		"show_phone_to_buyers_only": c.ShowPhoneOnly,
		"preferred_contact_methods": c.ContactMethods,
		"availability":              c.Availability,
		"exact_address":             c.ExactAddress,
	})
	if err != nil {
		log.Warn().Err(err).Int64("listingId", listingID).Msg("failed to save contact details")
	}
	return nil
}
