package flow

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
)

const (
	MsgLocationRequired   = "Location required: please select your location"
	MsgMinImages          = "Please upload at least 4 images for AI detection"
	MsgMaxImages          = "Maximum 10 images allowed"
	MsgDraftNotReady      = "Please wait, preparing your listing..."
	MsgAnalyzing          = "Uploading photos and detecting your car..."
	MsgDetected           = "AI detected: %s %s (%s confidence). You can change any field."
	MsgPublished          = "Success! Your car listing has been published."
	MsgDraftSaved         = "Draft saved. Your listing has been saved as draft."
	MsgAgreementRequired  = "Agreement required: please agree to all required terms"
	MsgMissingCarDetails  = "Missing information: please complete all required car details"
	MsgMissingLocation    = "Missing location: please select your location"
	MsgMissingContactInfo = "Missing contact info: please provide your phone number"
	MsgMissingDraft       = "Missing draft: please upload photos first"
)

func formatMessage(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}
