package docstore

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"sync"

	"github.com/dgallion1/docview/internal/metrics"
)

// CardsPath is the origin path of the card data.
const CardsPath = "/data/cards-db.json"

// Card keys with fallback content.
const (
	CardEducation = "education"
	CardPublish   = "publish"
	CardSelfIntro = "self-intro"
)

// EduInfo is one education entry.
type EduInfo struct {
	School string `json:"school"`
	Time   string `json:"time"`
	Major  string `json:"major"`
}

// CardContent is either free text or a list of education entries.
type CardContent struct {
	Text      string
	Education []EduInfo
}

func (c CardContent) MarshalJSON() ([]byte, error) {
	if c.Education != nil {
		return json.Marshal(c.Education)
	}
	return json.Marshal(c.Text)
}

func (c *CardContent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		c.Text = ""
		return json.Unmarshal(data, &c.Education)
	}
	c.Education = nil
	return json.Unmarshal(data, &c.Text)
}

// Card is one entry of the personal page.
type Card struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Action      string       `json:"action,omitempty"`
	Content     *CardContent `json:"content,omitempty"`
	Footer      string       `json:"footer,omitempty"`
}

// FallbackCards is served when the card data cannot be loaded.
func FallbackCards(author string) map[string]Card {
	text := func(s string) *CardContent { return &CardContent{Text: s} }
	return map[string]Card{
		CardEducation: {
			Title:       "Education",
			Description: "Education Description",
			Action:      "Education Action",
			Content:     text("Education Content"),
			Footer:      "Education Footer",
		},
		CardPublish: {
			Title:       "Publish",
			Description: "Publish Description",
			Action:      "Publish Action",
			Content:     text("Publish Content"),
			Footer:      "Publish Footer",
		},
		CardSelfIntro: {
			Title:       author,
			Description: "Self Intro Description",
			Content:     text("Self Intro Content"),
			Footer:      "Self Intro Footer",
		},
	}
}

// CardStore loads the card data once. A successful load is kept for the life
// of the process; a failed one is answered with FallbackCards and retried on
// the next call.
type CardStore struct {
	client  *Client
	author  string
	log     *slog.Logger
	metrics *metrics.Collector

	mu    sync.Mutex
	cards map[string]Card
}

func NewCardStore(client *Client, author string, m *metrics.Collector, log *slog.Logger) *CardStore {
	return &CardStore{
		client:  client,
		author:  author,
		log:     log.With("component", "cardstore"),
		metrics: m,
	}
}

// Cards returns every card by key.
func (s *CardStore) Cards(ctx context.Context) map[string]Card {
	s.mu.Lock()
	cached := s.cards
	s.mu.Unlock()
	if cached != nil {
		return maps.Clone(cached)
	}

	var cards map[string]Card
	if err := s.client.GetJSON(ctx, CardsPath, &cards); err != nil || cards == nil {
		s.log.Error("card data fetch failed", "error", err)
		s.metrics.CardFetch("fallback")
		return FallbackCards(s.author)
	}

	s.mu.Lock()
	s.cards = cards
	s.mu.Unlock()
	s.metrics.CardFetch("ok")
	return maps.Clone(cards)
}

// Card returns the card for key, or an empty card.
func (s *CardStore) Card(ctx context.Context, key string) Card {
	return s.Cards(ctx)[key]
}

// SelfIntro returns the self-intro card titled with the author's name when
// the data carries no title.
func (s *CardStore) SelfIntro(ctx context.Context) Card {
	c := s.Card(ctx, CardSelfIntro)
	if c.Title == "" {
		c.Title = s.author
	}
	return c
}
