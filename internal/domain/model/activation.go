package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentProvider identifies which normalizer branch produced a target.
type PaymentProvider string

const (
	ProviderCashApp PaymentProvider = "cashapp"
	ProviderPayPal  PaymentProvider = "paypal"
	ProviderVenmo   PaymentProvider = "venmo"
	ProviderZelle   PaymentProvider = "zelle"
	ProviderGeneric PaymentProvider = "generic"
	// ProviderProfile marks an auto-provisioned business card link.
	ProviderProfile PaymentProvider = "profile"
)

// Activation is the immutable record of one successful claim of a tag.
type Activation struct {
	ID                 string
	TagID              string
	UserID             string
	PaymentProvider    PaymentProvider
	PaymentHandleOrURL string
	ResolvedTargetURL  string
	CreatedAt          time.Time
}

func NewActivation(tagID, userID string, provider PaymentProvider, raw, resolved string) *Activation {
	if raw == "" {
		raw = resolved
	}
	return &Activation{
		ID:                 uuid.NewString(),
		TagID:              tagID,
		UserID:             userID,
		PaymentProvider:    provider,
		PaymentHandleOrURL: raw,
		ResolvedTargetURL:  resolved,
		CreatedAt:          time.Now().UTC(),
	}
}

// TagExportRow is one line of the administrative export.
type TagExportRow struct {
	Token           string
	Status          TagStatus
	TargetURL       string
	BuyerName       string
	BuyerEmail      string
	BuyerPhone      string
	ActivatedAt     *time.Time
	PaymentProvider string
	PaymentHandle   string
}
