package favorites

import "time"

// Favorite links an account to a saved listing. listing_id keeps the string
// form of the listing UUID so documents stay readable in the shell.
type Favorite struct {
	UserID    string    `bson:"user_id" json:"user_id"`
	ListingID string    `bson:"listing_id" json:"listing_id"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
