package models

// CreditPack is a purchasable bundle of credits. Packs are resolved by the
// webhook ingestor when a checkout completes.
type CreditPack struct {
	ID         string `db:"id"`
	Name       string `db:"name"`
	Credits    int64  `db:"credits"`
	PriceCents int64  `db:"price_cents"`
}
