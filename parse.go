package tarotbar

import (
	"encoding/json"
	"fmt"
)

// Payload shapes the provider is asked to produce. Parsing is strict:
// every field is required, card counts are exact, and malformed output
// is reported as a schema violation so the caller can re-request a
// fresh completion instead of repairing the payload.

type cardPayload struct {
	Name        string `json:"name"`
	Orientation string `json:"orientation"`
	Meaning     string `json:"meaning"`
}

type drinkPayload struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type basicPayload struct {
	Card           *cardPayload  `json:"card"`
	Interpretation string        `json:"interpretation"`
	Drink          *drinkPayload `json:"drink"`
}

type premiumPayload struct {
	Cards          []cardPayload  `json:"cards"`
	Interpretation string         `json:"interpretation"`
	Drinks         []drinkPayload `json:"drinks"`
}

func schemaErrf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrSchemaViolation, fmt.Sprintf(format, args...))
}

func (p cardPayload) toCard() (Card, error) {
	if p.Name == "" {
		return Card{}, schemaErrf("card name is empty")
	}
	o := Orientation(p.Orientation)
	if !o.Valid() {
		return Card{}, schemaErrf("card %q: unknown orientation %q", p.Name, p.Orientation)
	}
	if p.Meaning == "" {
		return Card{}, schemaErrf("card %q: meaning is empty", p.Name)
	}
	return Card{Name: p.Name, Orientation: o, Meaning: p.Meaning}, nil
}

func (p drinkPayload) toDrink() (Drink, error) {
	if p.Name == "" {
		return Drink{}, schemaErrf("drink name is empty")
	}
	if p.Reason == "" {
		return Drink{}, schemaErrf("drink %q: reason is empty", p.Name)
	}
	return Drink{Name: p.Name, Reason: p.Reason}, nil
}

// parseBasic validates a raw provider payload into a BasicReading.
// The returned reading has no ID or timestamp; the caller assigns them.
func parseBasic(raw string) (BasicReading, error) {
	var p basicPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return BasicReading{}, schemaErrf("payload is not a JSON object: %v", err)
	}
	if p.Card == nil {
		return BasicReading{}, schemaErrf("missing card")
	}
	card, err := p.Card.toCard()
	if err != nil {
		return BasicReading{}, err
	}
	if p.Interpretation == "" {
		return BasicReading{}, schemaErrf("interpretation is empty")
	}
	if p.Drink == nil {
		return BasicReading{}, schemaErrf("missing drink")
	}
	drink, err := p.Drink.toDrink()
	if err != nil {
		return BasicReading{}, err
	}
	return BasicReading{
		Card:           card,
		Interpretation: p.Interpretation,
		Drink:          drink,
	}, nil
}

// parsePremium validates a raw provider payload into a PremiumReading.
// Exactly PremiumCardCount cards are required, with one drink per card;
// a wrong count is a schema violation, never truncated or padded.
func parsePremium(raw string) (PremiumReading, error) {
	var p premiumPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return PremiumReading{}, schemaErrf("payload is not a JSON object: %v", err)
	}
	if len(p.Cards) != PremiumCardCount {
		return PremiumReading{}, schemaErrf("expected %d cards, got %d", PremiumCardCount, len(p.Cards))
	}
	cards := make([]Card, len(p.Cards))
	for i, cp := range p.Cards {
		card, err := cp.toCard()
		if err != nil {
			return PremiumReading{}, fmt.Errorf("%w (position %s)", err, PremiumPositions[i])
		}
		cards[i] = card
	}
	if p.Interpretation == "" {
		return PremiumReading{}, schemaErrf("interpretation is empty")
	}
	if len(p.Drinks) != len(p.Cards) {
		return PremiumReading{}, schemaErrf("expected %d drinks, got %d", len(p.Cards), len(p.Drinks))
	}
	drinks := make([]Drink, len(p.Drinks))
	for i, dp := range p.Drinks {
		drink, err := dp.toDrink()
		if err != nil {
			return PremiumReading{}, err
		}
		drinks[i] = drink
	}
	return PremiumReading{
		Cards:          cards,
		Interpretation: p.Interpretation,
		Drinks:         drinks,
	}, nil
}
