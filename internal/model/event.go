package model

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// EventType discriminates the two accepted event shapes.
type EventType string

const (
	TypeInstall  EventType = "install"
	TypePurchase EventType = "purchase"
)

// Stores accepted in the purchase store field.
const (
	StoreAppStore   = "app_store"
	StoreGooglePlay = "google_play"
	StoreOther      = "other"
)

var allowedPlatforms = map[string]bool{
	"ios":     true,
	"android": true,
}

var allowedStores = map[string]bool{
	StoreAppStore:   true,
	StoreGooglePlay: true,
	StoreOther:      true,
}

var currencyPattern = regexp.MustCompile(`^[A-Za-z]{3}$`)

// Event is the tagged-variant payload accepted by the ingestion API.
// Install and purchase events share the envelope fields; the purchase
// section is only meaningful when EventType is "purchase".
type Event struct {
	EventType  EventType `json:"event_type"`
	EventID    string    `json:"event_id"`
	OccurredAt string    `json:"occurred_at"` // RFC3339, client clock
	PlayerID   string    `json:"player_id"`
	AppID      string    `json:"app_id"`
	Platform   string    `json:"platform"`

	SessionID  string         `json:"session_id,omitempty"`
	DeviceID   string         `json:"device_id,omitempty"`
	Country    string         `json:"country,omitempty"`
	Properties map[string]any `json:"properties,omitempty"`

	// Install attribution.
	Campaign string `json:"campaign,omitempty"`
	AdGroup  string `json:"ad_group,omitempty"`
	Creative string `json:"creative,omitempty"`

	// Purchase fields. Quantity and AmountMicros are pointers so a
	// missing field is distinguishable from an explicit zero.
	ProductID     string `json:"product_id,omitempty"`
	Quantity      *int64 `json:"quantity,omitempty"`
	AmountMicros  *int64 `json:"amount_micros,omitempty"`
	Currency      string `json:"currency,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	Store         string `json:"store,omitempty"`

	// ReceivedAt is stamped by the server at ingestion time. Any
	// client-supplied value is discarded.
	ReceivedAt string `json:"received_at,omitempty"`
}

// FieldError names a single violated constraint.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Decode unmarshals a raw JSON payload into an Event. expected, when
// non-empty, supplies the event type for bodies that omit the
// discriminator (the typed install/purchase endpoints).
func Decode(body []byte, expected EventType) (Event, error) {
	var evt Event
	if err := json.Unmarshal(body, &evt); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if evt.EventType == "" {
		evt.EventType = expected
	}
	return evt, nil
}

// Validate checks every field constraint and returns all violations.
// expected, when non-empty, must match the payload's event_type.
// A nil return means the event is well formed; Validate also normalizes
// the currency code to uppercase and defaults a missing purchase
// quantity to 1.
func (e *Event) Validate(expected EventType) []FieldError {
	var errs []FieldError

	switch e.EventType {
	case TypeInstall, TypePurchase:
		if expected != "" && e.EventType != expected {
			errs = append(errs, FieldError{"event_type", fmt.Sprintf("must be %q", expected)})
		}
	case "":
		errs = append(errs, FieldError{"event_type", "required"})
	default:
		errs = append(errs, FieldError{"event_type", "must be install or purchase"})
	}

	if e.EventID == "" {
		errs = append(errs, FieldError{"event_id", "required"})
	}
	if e.OccurredAt == "" {
		errs = append(errs, FieldError{"occurred_at", "required"})
	} else if _, err := time.Parse(time.RFC3339, e.OccurredAt); err != nil {
		errs = append(errs, FieldError{"occurred_at", "must be an RFC3339 timestamp"})
	}
	if e.PlayerID == "" {
		errs = append(errs, FieldError{"player_id", "required"})
	}
	if e.AppID == "" {
		errs = append(errs, FieldError{"app_id", "required"})
	}
	if e.Platform == "" {
		errs = append(errs, FieldError{"platform", "required"})
	} else if !allowedPlatforms[e.Platform] {
		errs = append(errs, FieldError{"platform", "must be ios or android"})
	}

	if e.EventType == TypePurchase {
		errs = append(errs, e.validatePurchase()...)
	}
	return errs
}

func (e *Event) validatePurchase() []FieldError {
	var errs []FieldError

	if e.ProductID == "" {
		errs = append(errs, FieldError{"product_id", "required"})
	}
	if e.Quantity == nil {
		one := int64(1)
		e.Quantity = &one
	} else if *e.Quantity < 1 {
		errs = append(errs, FieldError{"quantity", "must be at least 1"})
	}
	if e.AmountMicros == nil {
		errs = append(errs, FieldError{"amount_micros", "required"})
	} else if *e.AmountMicros < 0 {
		errs = append(errs, FieldError{"amount_micros", "must not be negative"})
	}
	if e.Currency == "" {
		errs = append(errs, FieldError{"currency", "required"})
	} else if !currencyPattern.MatchString(e.Currency) {
		errs = append(errs, FieldError{"currency", "must be a 3-letter ISO code"})
	} else {
		e.Currency = strings.ToUpper(e.Currency)
	}
	if e.Store != "" && !allowedStores[e.Store] {
		errs = append(errs, FieldError{"store", "must be app_store, google_play, or other"})
	}
	return errs
}
