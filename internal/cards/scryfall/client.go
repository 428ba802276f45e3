// Package scryfall looks up card colors through the Scryfall API.
package scryfall

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ramonehamilton/mtg-archetypes/internal/remote"
)

const (
	DefaultBaseURL = "https://api.scryfall.com"

	// MaxBatchSize is the most identifiers Scryfall accepts per collection request.
	MaxBatchSize = 75

	rateLimitDelay = 100 * time.Millisecond // 10 req/sec
)

// Client is a rate-limited Scryfall API client.
type Client struct {
	http    *remote.Client
	baseURL string
}

// NewClient creates a client against baseURL. An empty baseURL uses the
// public API.
func NewClient(baseURL string, opts remote.Options) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if opts.RateLimitDelay == 0 {
		opts.RateLimitDelay = rateLimitDelay
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "mtg-archetypes/1.0"
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Client{
		http:    remote.NewClient(opts),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// NamedCard retrieves a card by its exact name.
func (c *Client) NamedCard(ctx context.Context, name string) (*Card, error) {
	u := fmt.Sprintf("%s/cards/named?exact=%s", c.baseURL, url.QueryEscape(name))

	body, err := c.http.Get(ctx, u, "application/json")
	if err != nil {
		return nil, fmt.Errorf("failed to get card %q: %w", name, err)
	}

	var card Card
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, fmt.Errorf("failed to parse card %q: %w", name, err)
	}
	return &card, nil
}

// CardsByNames fetches cards through the batch /cards/collection endpoint,
// splitting the names into batches of MaxBatchSize. It returns the cards
// found and the names Scryfall did not recognize.
func (c *Client) CardsByNames(ctx context.Context, names []string) ([]Card, []string, error) {
	var (
		cards    []Card
		notFound []string
	)
	for i := 0; i < len(names); i += MaxBatchSize {
		end := min(i+MaxBatchSize, len(names))

		batchCards, batchMissing, err := c.collection(ctx, names[i:end])
		if err != nil {
			return nil, nil, fmt.Errorf("failed to fetch batch %d-%d: %w", i, end, err)
		}
		cards = append(cards, batchCards...)
		notFound = append(notFound, batchMissing...)
	}
	return cards, notFound, nil
}

func (c *Client) collection(ctx context.Context, names []string) ([]Card, []string, error) {
	req := CollectionRequest{Identifiers: make([]CardIdentifier, len(names))}
	for i, name := range names {
		req.Identifiers[i] = CardIdentifier{Name: name}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.http.PostJSON(ctx, c.baseURL+"/cards/collection", payload)
	if err != nil {
		return nil, nil, err
	}

	var resp CollectionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, nil, fmt.Errorf("failed to parse Scryfall response: %w", err)
	}

	notFound := make([]string, 0, len(resp.NotFound))
	for _, id := range resp.NotFound {
		if id.Name != "" {
			notFound = append(notFound, id.Name)
		}
	}
	return resp.Data, notFound, nil
}

// IsNotFound reports whether err is a 404 from Scryfall.
func IsNotFound(err error) bool {
	return remote.IsNotFound(err)
}
