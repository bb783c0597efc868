package tarotbar

import "time"

// Orientation is the orientation of a drawn card.
type Orientation string

const (
	Upright  Orientation = "upright"
	Reversed Orientation = "reversed"
)

// Valid reports whether o is a known orientation.
func (o Orientation) Valid() bool {
	return o == Upright || o == Reversed
}

// Card is a single drawn card. Cards are immutable and exist only
// inside a reading.
type Card struct {
	Name        string      `json:"name"`
	Orientation Orientation `json:"orientation"`
	Meaning     string      `json:"meaning"`
}

// Drink is a drink recommendation tied to a card's meaning.
type Drink struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// BasicReading is the result of a free single-card draw.
type BasicReading struct {
	ID             string    `json:"id"`
	Card           Card      `json:"card"`
	Interpretation string    `json:"interpretation"`
	Drink          Drink     `json:"drink"`
	CreatedAt      time.Time `json:"created_at"`
}

// PremiumCardCount is the number of cards in a premium spread.
const PremiumCardCount = 3

// PremiumPositions names the premium spread positions, in card order.
var PremiumPositions = [PremiumCardCount]string{"past", "present", "future"}

// PremiumReading is the result of a paid three-card draw. Cards are in
// past/present/future order and Drinks holds one entry per card.
type PremiumReading struct {
	ID             string    `json:"id"`
	Context        string    `json:"context,omitempty"`
	Cards          []Card    `json:"cards"`
	Interpretation string    `json:"interpretation"`
	Drinks         []Drink   `json:"drinks"`
	CreatedAt      time.Time `json:"created_at"`
}

// ReadingKind identifies a generation request kind.
type ReadingKind string

const (
	KindBasic   ReadingKind = "basic"
	KindPremium ReadingKind = "premium"
)
