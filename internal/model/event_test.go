package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validInstall() Event {
	return Event{
		EventType:  TypeInstall,
		EventID:    "e1",
		OccurredAt: "2024-01-01T00:00:00Z",
		PlayerID:   "p1",
		AppID:      "com.game.test",
		Platform:   "ios",
	}
}

func validPurchase() Event {
	evt := validInstall()
	evt.EventType = TypePurchase
	evt.ProductID = "gems_pack_01"
	amount := int64(4_990_000)
	quantity := int64(1)
	evt.AmountMicros = &amount
	evt.Quantity = &quantity
	evt.Currency = "EUR"
	return evt
}

func fields(errs []FieldError) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Field)
	}
	return out
}

func TestValidateInstallOK(t *testing.T) {
	evt := validInstall()
	require.Empty(t, evt.Validate(TypeInstall))
}

func TestValidatePurchaseOK(t *testing.T) {
	evt := validPurchase()
	require.Empty(t, evt.Validate(TypePurchase))
}

func TestValidateCollectsEveryViolation(t *testing.T) {
	evt := Event{EventType: TypePurchase, Platform: "windows"}
	errs := evt.Validate(TypePurchase)
	require.ElementsMatch(t,
		[]string{"event_id", "occurred_at", "player_id", "app_id", "platform", "product_id", "amount_micros", "currency"},
		fields(errs))
}

func TestValidateRejectsUnknownPlatform(t *testing.T) {
	evt := validInstall()
	evt.Platform = "windows"
	errs := evt.Validate(TypeInstall)
	require.Equal(t, []string{"platform"}, fields(errs))
}

func TestValidateRejectsZeroQuantity(t *testing.T) {
	evt := validPurchase()
	zero := int64(0)
	evt.Quantity = &zero
	errs := evt.Validate(TypePurchase)
	require.Equal(t, []string{"quantity"}, fields(errs))
}

func TestValidateDefaultsMissingQuantity(t *testing.T) {
	evt := validPurchase()
	evt.Quantity = nil
	require.Empty(t, evt.Validate(TypePurchase))
	require.NotNil(t, evt.Quantity)
	require.Equal(t, int64(1), *evt.Quantity)
}

func TestValidateRejectsNegativeAmount(t *testing.T) {
	evt := validPurchase()
	neg := int64(-1)
	evt.AmountMicros = &neg
	errs := evt.Validate(TypePurchase)
	require.Equal(t, []string{"amount_micros"}, fields(errs))
}

func TestValidateAcceptsZeroAmount(t *testing.T) {
	evt := validPurchase()
	zero := int64(0)
	evt.AmountMicros = &zero
	require.Empty(t, evt.Validate(TypePurchase))
}

func TestValidateCurrency(t *testing.T) {
	evt := validPurchase()

	evt.Currency = "EURO"
	require.Equal(t, []string{"currency"}, fields(evt.Validate(TypePurchase)))

	evt.Currency = "E1R"
	require.Equal(t, []string{"currency"}, fields(evt.Validate(TypePurchase)))

	evt.Currency = "eur"
	require.Empty(t, evt.Validate(TypePurchase))
	require.Equal(t, "EUR", evt.Currency)
}

func TestValidateRejectsUnknownStore(t *testing.T) {
	evt := validPurchase()
	evt.Store = "steam"
	require.Equal(t, []string{"store"}, fields(evt.Validate(TypePurchase)))

	evt.Store = StoreGooglePlay
	require.Empty(t, evt.Validate(TypePurchase))
}

func TestValidateRejectsMalformedTimestamp(t *testing.T) {
	evt := validInstall()
	evt.OccurredAt = "yesterday"
	require.Equal(t, []string{"occurred_at"}, fields(evt.Validate(TypeInstall)))
}

func TestValidateEventTypeMismatch(t *testing.T) {
	evt := validInstall()
	errs := evt.Validate(TypePurchase)
	require.Contains(t, fields(errs), "event_type")
}

func TestDecodeDefaultsExpectedType(t *testing.T) {
	body := []byte(`{"event_id":"e1","occurred_at":"2024-01-01T00:00:00Z","player_id":"p1","app_id":"a","platform":"ios"}`)
	evt, err := Decode(body, TypeInstall)
	require.NoError(t, err)
	require.Equal(t, TypeInstall, evt.EventType)
	require.Empty(t, evt.Validate(TypeInstall))
}

func TestDecodeRejectsMalformedJSON(t *testing.T) {
	_, err := Decode([]byte(`{"event_id":`), TypeInstall)
	require.Error(t, err)
}
