package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/donaldgifford/catalog-scraper/internal/metrics"
	domain "github.com/donaldgifford/catalog-scraper/pkg/types"
)

const (
	colorGreen  = 0x2ECC71 // budget reached
	colorYellow = 0xF1C40F // stopped early without error
	colorRed    = 0xE74C3C // error

	// Discord allows max 10 embeds per message.
	maxEmbeds = 10

	maxResponseExcerpt = 512
)

// DiscordNotifier implements Notifier via Discord webhook.
type DiscordNotifier struct {
	webhookURL string
	client     *http.Client
	sampleSize int
}

// NewDiscordNotifier creates a new DiscordNotifier.
func NewDiscordNotifier(webhookURL string, opts ...DiscordOption) *DiscordNotifier {
	d := &DiscordNotifier{
		webhookURL: webhookURL,
		client:     http.DefaultClient,
		sampleSize: 5,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DiscordOption configures a DiscordNotifier.
type DiscordOption func(*DiscordNotifier)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) DiscordOption {
	return func(d *DiscordNotifier) {
		d.client = c
	}
}

// WithSampleSize sets how many saved items are attached to a summary.
// Values are capped so the message stays within Discord's embed limit.
func WithSampleSize(n int) DiscordOption {
	return func(d *DiscordNotifier) {
		d.sampleSize = max(0, min(n, maxEmbeds-1))
	}
}

// discordWebhookPayload is the Discord webhook JSON structure.
type discordWebhookPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

type discordEmbed struct {
	Title       string              `json:"title"`
	URL         string              `json:"url,omitempty"`
	Color       int                 `json:"color"`
	Description string              `json:"description,omitempty"`
	Fields      []discordEmbedField `json:"fields,omitempty"`
	Thumbnail   *discordThumbnail   `json:"thumbnail,omitempty"`
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type discordThumbnail struct {
	URL string `json:"url"`
}

// SendRunSummary posts the run outcome followed by up to sampleSize item embeds.
func (d *DiscordNotifier) SendRunSummary(ctx context.Context, s *RunSummary) error {
	embeds := make([]discordEmbed, 0, 1+d.sampleSize)
	embeds = append(embeds, summaryEmbed(s))

	limit := min(len(s.Sample), d.sampleSize)
	for i := range limit {
		embeds = append(embeds, itemEmbed(&s.Sample[i]))
	}

	return d.post(ctx, discordWebhookPayload{Embeds: embeds})
}

func summaryEmbed(s *RunSummary) discordEmbed {
	r := s.Result
	embed := discordEmbed{
		Title: fmt.Sprintf("Scrape finished: %s", s.Name),
		Color: stopColor(r.StopReason),
		Fields: []discordEmbedField{
			{Name: "Saved", Value: strconv.Itoa(r.Saved), Inline: true},
			{Name: "Pages", Value: strconv.Itoa(r.Pages), Inline: true},
			{Name: "Stop reason", Value: string(r.StopReason), Inline: true},
			{Name: "Duration", Value: s.Duration.Round(100*time.Millisecond).String(), Inline: true},
		},
	}
	if s.Query != "" {
		embed.Description = "`" + s.Query + "`"
	}
	if r.TotalPages != nil {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name: "Total pages", Value: strconv.Itoa(*r.TotalPages), Inline: true,
		})
	}
	if r.Error != "" {
		embed.Fields = append(embed.Fields, discordEmbedField{Name: "Error", Value: r.Error})
	}
	return embed
}

func itemEmbed(it *domain.Item) discordEmbed {
	embed := discordEmbed{
		Title: it.Title,
		URL:   it.URL,
		Color: colorGreen,
		Fields: []discordEmbedField{
			{Name: "Price", Value: formatMoney(it.TotalPrice, it.Currency), Inline: true},
			{Name: "Brand", Value: orDash(it.Brand), Inline: true},
			{Name: "Size", Value: orDash(it.Size), Inline: true},
			{Name: "Condition", Value: orDash(it.Condition), Inline: true},
		},
	}
	if it.SellerUsername != "" {
		embed.Fields = append(embed.Fields, discordEmbedField{
			Name: "Seller", Value: it.SellerUsername, Inline: true,
		})
	}
	if it.ImageURL != "" {
		embed.Thumbnail = &discordThumbnail{URL: it.ImageURL}
	}
	return embed
}

func stopColor(reason domain.StopReason) int {
	switch reason {
	case domain.StopError:
		return colorRed
	case domain.StopBudgetReached:
		return colorGreen
	default:
		return colorYellow
	}
}

func formatMoney(amount float64, currency string) string {
	return strconv.FormatFloat(amount, 'f', 2, 64) + " " + currency
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (d *DiscordNotifier) post(ctx context.Context, payload discordWebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling discord payload: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		d.webhookURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating discord request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := d.client.Do(req)
	metrics.NotificationDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("sending discord webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("discord rate limited (429)")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseExcerpt))
		if readErr != nil {
			return fmt.Errorf("discord returned %d (body unreadable)", resp.StatusCode)
		}
		return fmt.Errorf("discord returned %d: %s", resp.StatusCode, respBody)
	}

	return nil
}
