// internal/deck/types.go
//
// Core type definitions for the card deck.
// Defines:
//   - AssetID: opaque reference to a card's face image.
//   - Card: one card on the board, immutable after creation.
//   - Deck: the shuffled 2N-card presentation order.

package deck

// AssetID is an opaque identifier for one visual asset (an image URL in
// practice). Equality-comparable; unique within a deck's asset pool.
type AssetID string

// Card is a single board card. Exactly two cards in a deck share a PairID.
type Card struct {
	ID     string  // unique per card
	PairID int     // shared by both cards of a pair, in [0, N)
	Asset  AssetID // face image, same for both cards of a pair
}

// Deck is the post-shuffle presentation order of all 2N cards.
type Deck []Card
