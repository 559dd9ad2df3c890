package contract

import (
	"fmt"
	"math/big"
	"strings"
)

// MaxDurationMinutes is one year.
const MaxDurationMinutes = 525600

func invalid(op Op, msg string) error {
	return &Error{Kind: KindInvalidInput, Op: op, Message: msg}
}

// ValidateCreate checks campaign inputs before anything is signed.
func ValidateCreate(p CreateParams) error {
	if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Description) == "" || p.Goal == nil {
		return invalid(OpCreate, "Please fill in all fields")
	}
	if p.Goal.Sign() <= 0 {
		return invalid(OpCreate, "Goal must be greater than 0")
	}
	if p.DurationMinutes <= 0 {
		return invalid(OpCreate, "Duration must be greater than 0 minutes")
	}
	if p.DurationMinutes > MaxDurationMinutes {
		return invalid(OpCreate, fmt.Sprintf("Duration cannot exceed %d minutes (1 year)", MaxDurationMinutes))
	}
	return nil
}

// ValidateFund checks a contribution before it is signed.
func ValidateFund(id uint64, amount *big.Int) error {
	if err := ValidateCampaignID(OpFund, id); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return invalid(OpFund, "Please enter a valid amount")
	}
	return nil
}

// ValidateCampaignID rejects id 0, which the contract never assigns.
func ValidateCampaignID(op Op, id uint64) error {
	if id == 0 {
		return invalid(op, "Invalid campaign")
	}
	return nil
}
