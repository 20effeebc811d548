package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// PostingLine names an account by code; the service resolves it per parish.
type PostingLine struct {
	Account   LedgerAccountCode
	Direction LedgerEntryDirection
	Amount    int64
}

type CreateEntryRequest struct {
	ParishID   string
	SourceType LedgerSourceType
	SourceID   string
	Currency   string
	OccurredAt time.Time
	Lines      []PostingLine
}

type CreateEntryResult struct {
	EntryID snowflake.ID
	// Inserted is false when an entry for the same source already existed.
	Inserted bool
}

// PaymentPosting describes a received concession payment.
type PaymentPosting struct {
	ParishID      string
	PaymentID     string
	Currency      string
	Amount        decimal.Decimal
	OccurredAt    time.Time
	DebitAccount  LedgerAccountCode
	CreditAccount LedgerAccountCode
}

type Service interface {
	CreateEntry(ctx context.Context, req CreateEntryRequest) (CreateEntryResult, error)
	PostConcessionPayment(ctx context.Context, posting PaymentPosting) (CreateEntryResult, error)
	ListLines(ctx context.Context, parishID string, sourceType LedgerSourceType, sourceID string) ([]LedgerEntryLine, error)
}

var (
	ErrInvalidParish        = errors.New("invalid_parish")
	ErrInvalidSourceType    = errors.New("invalid_source_type")
	ErrInvalidSourceID      = errors.New("invalid_source_id")
	ErrInvalidCurrency      = errors.New("invalid_currency")
	ErrInvalidOccurredAt    = errors.New("invalid_occurred_at")
	ErrInvalidEntryLines    = errors.New("invalid_entry_lines")
	ErrInvalidAccount       = errors.New("invalid_account")
	ErrInvalidLineDirection = errors.New("invalid_line_direction")
	ErrInvalidLineAmount    = errors.New("invalid_line_amount")
	ErrUnbalancedEntry      = errors.New("unbalanced_entry")
)

// ValidateBalanced checks that debits equal credits and that both sides are present.
func ValidateBalanced(lines []PostingLine) error {
	var debit, credit int64
	for _, line := range lines {
		switch line.Direction {
		case LedgerEntryDirectionDebit:
			debit += line.Amount
		case LedgerEntryDirectionCredit:
			credit += line.Amount
		default:
			return ErrInvalidLineDirection
		}
	}
	if debit == 0 || credit == 0 || debit != credit {
		return ErrUnbalancedEntry
	}
	return nil
}

// ToMinorUnits converts a decimal amount with at most two fractional digits.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	shifted := amount.Shift(2)
	if !shifted.Equal(shifted.Truncate(0)) || !shifted.IsPositive() {
		return 0, ErrInvalidLineAmount
	}
	return shifted.IntPart(), nil
}
