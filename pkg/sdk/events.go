package sdk

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"game-events/internal/model"
)

// InstallParams describes an install event to construct. PlayerID,
// AppID, and Platform are required; everything else is optional.
// EventID and OccurredAt are filled in when left empty.
type InstallParams struct {
	PlayerID string
	AppID    string
	Platform string

	EventID    string
	OccurredAt string
	SessionID  string
	DeviceID   string
	Country    string
	Campaign   string
	AdGroup    string
	Creative   string
	Properties map[string]any
}

// NewInstallEvent builds an install event ready to send.
func NewInstallEvent(p InstallParams) model.Event {
	return model.Event{
		EventType:  model.TypeInstall,
		EventID:    orGenerated(p.EventID),
		OccurredAt: orNow(p.OccurredAt),
		PlayerID:   p.PlayerID,
		AppID:      p.AppID,
		Platform:   p.Platform,
		SessionID:  p.SessionID,
		DeviceID:   p.DeviceID,
		Country:    p.Country,
		Campaign:   p.Campaign,
		AdGroup:    p.AdGroup,
		Creative:   p.Creative,
		Properties: p.Properties,
	}
}

// PurchaseParams describes a purchase event to construct. Quantity
// left at zero defaults to 1; Currency is uppercased.
type PurchaseParams struct {
	PlayerID     string
	AppID        string
	Platform     string
	ProductID    string
	AmountMicros int64
	Currency     string

	Quantity      int64
	EventID       string
	OccurredAt    string
	TransactionID string
	Store         string
	SessionID     string
	DeviceID      string
	Country       string
	Properties    map[string]any
}

// NewPurchaseEvent builds a purchase event ready to send.
func NewPurchaseEvent(p PurchaseParams) model.Event {
	quantity := p.Quantity
	if quantity == 0 {
		quantity = 1
	}
	amount := p.AmountMicros
	return model.Event{
		EventType:     model.TypePurchase,
		EventID:       orGenerated(p.EventID),
		OccurredAt:    orNow(p.OccurredAt),
		PlayerID:      p.PlayerID,
		AppID:         p.AppID,
		Platform:      p.Platform,
		SessionID:     p.SessionID,
		DeviceID:      p.DeviceID,
		Country:       p.Country,
		Properties:    p.Properties,
		ProductID:     p.ProductID,
		Quantity:      &quantity,
		AmountMicros:  &amount,
		Currency:      strings.ToUpper(p.Currency),
		TransactionID: p.TransactionID,
		Store:         p.Store,
	}
}

func orGenerated(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

func orNow(ts string) string {
	if ts != "" {
		return ts
	}
	return time.Now().UTC().Format(time.RFC3339)
}
