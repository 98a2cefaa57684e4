package notification

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jvasco323/TRM/internal/properties"
)

type DiscordMessage struct {
	Embeds []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
}

func send(url string, embed DiscordEmbed) error {
	if url == "" {
		// Webhooks are optional, runs without them stay silent.
		return nil
	}

	payload, err := json.Marshal(DiscordMessage{Embeds: []DiscordEmbed{embed}})
	if err != nil {
		return err
	}

	resp, err := http.Post(url, "application/json", bytes.NewBuffer(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("failed to send Discord notification, status code: %d", resp.StatusCode)
	}
	return nil
}

// SendDiscordErrorNotification reports a failed run to the error
// webhook.
func SendDiscordErrorNotification(errorMessage string) error {
	return send(properties.DiscordErrorNotificationUrl(), DiscordEmbed{
		Title:       "🚨 Run failed",
		Description: fmt.Sprintf("The pipeline fell over before the finish line.\n\n%s", errorMessage),
		Color:       16711680, // Red color
	})
}

// SendDiscordWarnNotification reports a run that finished but skipped
// part of the work.
func SendDiscordWarnNotification(warnMessage string) error {
	return send(properties.DiscordErrorNotificationUrl(), DiscordEmbed{
		Title:       "⚠️ Run finished with warnings",
		Description: warnMessage,
		Color:       16753920, // Orange color
	})
}

// SendDiscordSuccessNotification reports a finished study run to the
// success webhook.
func SendDiscordSuccessNotification(successMessage string) error {
	return send(properties.DiscordSuccessNotificationUrl(), DiscordEmbed{
		Title:       "✅ Run finished",
		Description: successMessage,
		Color:       65280, // Green color
	})
}
