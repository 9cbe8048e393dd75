package service

import "fmt"

// ValidateAmount checks that a credit amount is positive.
func ValidateAmount(amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive, got %d", amount)
	}
	return nil
}

// ValidateDescription checks that a ledger description is present and short
// enough to store.
func ValidateDescription(description string) error {
	if description == "" {
		return fmt.Errorf("description cannot be empty")
	}
	if len(description) > 500 {
		return fmt.Errorf("description exceeds 500 characters")
	}
	return nil
}
