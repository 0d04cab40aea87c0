// Command send-events fires one install and one purchase event at a
// running ingest API; a quick smoke check for local setups.
package main

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"game-events/pkg/sdk"
)

func main() {
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8080"
	}
	client := sdk.New(sdk.Config{
		BaseURL: baseURL,
		APIKey:  os.Getenv("EVENT_API_KEY"),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	install := sdk.NewInstallEvent(sdk.InstallParams{
		PlayerID: "player_1",
		AppID:    "com.game.test",
		Platform: "ios",
	})
	resp, err := client.SendInstall(ctx, install)
	if err != nil {
		log.Fatal().Err(err).Msg("send install")
	}
	log.Info().Str("event_id", resp.EventID).Str("status", resp.Status).Msg("install accepted")

	purchase := sdk.NewPurchaseEvent(sdk.PurchaseParams{
		PlayerID:     "player_1",
		AppID:        "com.game.test",
		Platform:     "ios",
		ProductID:    "gems_pack_01",
		AmountMicros: 4_990_000,
		Currency:     "EUR",
	})
	resp, err = client.SendPurchase(ctx, purchase)
	if err != nil {
		log.Fatal().Err(err).Msg("send purchase")
	}
	log.Info().Str("event_id", resp.EventID).Str("status", resp.Status).Msg("purchase accepted")
}
