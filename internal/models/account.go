package models

import (
	"time"

	"github.com/google/uuid"
)

// Account holds the cached credit balance for one credit holder. Identity
// attributes live in the identity domain; this subsystem only reads and
// writes the balance through the ledger.
type Account struct {
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
	BalanceCredits int64     `db:"balance_credits"`
	ID             uuid.UUID `db:"id"`
}
