// Package prerequisite holds the checks that gate a lead's move into a stage
// and the registry that maps target stages to their ordered checks.
package prerequisite

import (
	"context"

	"sales_pipeline_backend/internal/pipeline/domain"
	"sales_pipeline_backend/platform/phone"

	"github.com/google/uuid"
)

// Check identifiers usable in pipeline definitions.
const (
	CheckOfferSentMessage = "offer_sent_message"
	CheckContactComplete  = "contact_complete"
	CheckPhoneValid       = "phone_valid"
)

// Failure messages shown to users when a check is not satisfied.
const (
	MsgOfferNotSent      = "An offer message with status sent is required before moving to this stage."
	MsgContactIncomplete = "Phone and email must both be filled in before moving to this stage."
	MsgPhoneInvalid      = "The lead's phone number is not a valid number."
)

// Check is a single named condition on a lead. Evaluate returns a non-empty
// message when the condition is violated, and an error only when it could
// not be determined.
type Check interface {
	ID() string
	Evaluate(ctx context.Context, lead domain.Lead) (string, error)
}

// MessageLookup answers whether the messaging subsystem recorded a message.
type MessageLookup interface {
	MessageExists(ctx context.Context, leadID uuid.UUID, messageType, status string) (bool, error)
}

// MessageRecordedCheck is satisfied when a message of the given type and
// status exists for the lead.
type MessageRecordedCheck struct {
	CheckID  string
	Messages MessageLookup
	Type     string
	Status   string
	Message  string
}

// NewOfferSentCheck requires a sent offer message.
func NewOfferSentCheck(messages MessageLookup) *MessageRecordedCheck {
	return &MessageRecordedCheck{
		CheckID:  CheckOfferSentMessage,
		Messages: messages,
		Type:     domain.MessageTypeOfferSent,
		Status:   domain.MessageStatusSent,
		Message:  MsgOfferNotSent,
	}
}

func (c *MessageRecordedCheck) ID() string { return c.CheckID }

func (c *MessageRecordedCheck) Evaluate(ctx context.Context, lead domain.Lead) (string, error) {
	exists, err := c.Messages.MessageExists(ctx, lead.ID, c.Type, c.Status)
	if err != nil {
		return "", err
	}
	if !exists {
		return c.Message, nil
	}
	return "", nil
}

// ContactCompletenessCheck requires both phone and email on the lead.
type ContactCompletenessCheck struct{}

func (ContactCompletenessCheck) ID() string { return CheckContactComplete }

func (ContactCompletenessCheck) Evaluate(_ context.Context, lead domain.Lead) (string, error) {
	if !lead.HasContactDetails() {
		return MsgContactIncomplete, nil
	}
	return "", nil
}

// PhoneValidCheck requires the lead's phone to parse as a valid number in
// the configured default region. An empty phone is left to ContactCompletenessCheck.
type PhoneValidCheck struct {
	Region string
}

func (PhoneValidCheck) ID() string { return CheckPhoneValid }

func (c PhoneValidCheck) Evaluate(_ context.Context, lead domain.Lead) (string, error) {
	if lead.Phone == "" {
		return "", nil
	}
	if !phone.IsValid(lead.Phone, c.Region) {
		return MsgPhoneInvalid, nil
	}
	return "", nil
}
