package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/ecclesia/internal/audit/domain"
	"github.com/smallbiznis/ecclesia/internal/clock"
	ledgerdomain "github.com/smallbiznis/ecclesia/internal/ledger/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	AuditSvc auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	auditSvc auditdomain.Service
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("ledger.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		auditSvc: p.AuditSvc,
	}
}

var accountNames = map[ledgerdomain.LedgerAccountCode]string{
	ledgerdomain.AccountCodeCash:              "Cash",
	ledgerdomain.AccountCodeConcessionRevenue: "Concession revenue",
}

func (s *Service) PostConcessionPayment(ctx context.Context, posting ledgerdomain.PaymentPosting) (ledgerdomain.CreateEntryResult, error) {
	amount, err := ledgerdomain.ToMinorUnits(posting.Amount)
	if err != nil {
		return ledgerdomain.CreateEntryResult{}, err
	}

	debit := posting.DebitAccount
	if debit == "" {
		debit = ledgerdomain.AccountCodeCash
	}
	credit := posting.CreditAccount
	if credit == "" {
		credit = ledgerdomain.AccountCodeConcessionRevenue
	}

	return s.CreateEntry(ctx, ledgerdomain.CreateEntryRequest{
		ParishID:   posting.ParishID,
		SourceType: ledgerdomain.SourceTypeConcessionPayment,
		SourceID:   posting.PaymentID,
		Currency:   posting.Currency,
		OccurredAt: posting.OccurredAt,
		Lines: []ledgerdomain.PostingLine{
			{Account: debit, Direction: ledgerdomain.LedgerEntryDirectionDebit, Amount: amount},
			{Account: credit, Direction: ledgerdomain.LedgerEntryDirectionCredit, Amount: amount},
		},
	})
}

func (s *Service) CreateEntry(ctx context.Context, req ledgerdomain.CreateEntryRequest) (ledgerdomain.CreateEntryResult, error) {
	parishID := strings.TrimSpace(req.ParishID)
	if parishID == "" {
		return ledgerdomain.CreateEntryResult{}, ledgerdomain.ErrInvalidParish
	}
	sourceType := ledgerdomain.LedgerSourceType(strings.TrimSpace(string(req.SourceType)))
	if sourceType == "" {
		return ledgerdomain.CreateEntryResult{}, ledgerdomain.ErrInvalidSourceType
	}
	sourceID := strings.TrimSpace(req.SourceID)
	if sourceID == "" {
		return ledgerdomain.CreateEntryResult{}, ledgerdomain.ErrInvalidSourceID
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if len(currency) != 3 {
		return ledgerdomain.CreateEntryResult{}, ledgerdomain.ErrInvalidCurrency
	}
	if req.OccurredAt.IsZero() {
		return ledgerdomain.CreateEntryResult{}, ledgerdomain.ErrInvalidOccurredAt
	}
	if len(req.Lines) < 2 {
		return ledgerdomain.CreateEntryResult{}, ledgerdomain.ErrInvalidEntryLines
	}

	lines := make([]ledgerdomain.PostingLine, 0, len(req.Lines))
	for _, line := range req.Lines {
		if strings.TrimSpace(string(line.Account)) == "" {
			return ledgerdomain.CreateEntryResult{}, ledgerdomain.ErrInvalidAccount
		}
		direction, err := normalizeDirection(line.Direction)
		if err != nil {
			return ledgerdomain.CreateEntryResult{}, err
		}
		if line.Amount <= 0 {
			return ledgerdomain.CreateEntryResult{}, ledgerdomain.ErrInvalidLineAmount
		}
		lines = append(lines, ledgerdomain.PostingLine{
			Account:   line.Account,
			Direction: direction,
			Amount:    line.Amount,
		})
	}
	if err := ledgerdomain.ValidateBalanced(lines); err != nil {
		return ledgerdomain.CreateEntryResult{}, err
	}

	var result ledgerdomain.CreateEntryResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.clock.Now()
		entry := ledgerdomain.LedgerEntry{
			ID:         s.genID.Generate(),
			ParishID:   parishID,
			SourceType: sourceType,
			SourceID:   sourceID,
			Currency:   currency,
			OccurredAt: req.OccurredAt.UTC(),
			CreatedAt:  now,
		}
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "parish_id"}, {Name: "source_type"}, {Name: "source_id"}},
			DoNothing: true,
		}).Create(&entry)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			existing, err := s.findEntry(ctx, tx, parishID, sourceType, sourceID)
			if err != nil {
				return err
			}
			result = ledgerdomain.CreateEntryResult{EntryID: existing.ID}
			return nil
		}

		for _, line := range lines {
			accountID, err := s.ensureAccount(ctx, tx, parishID, line.Account)
			if err != nil {
				return err
			}
			if err := tx.Create(&ledgerdomain.LedgerEntryLine{
				ID:            s.genID.Generate(),
				LedgerEntryID: entry.ID,
				AccountID:     accountID,
				Direction:     line.Direction,
				Currency:      currency,
				Amount:        line.Amount,
				CreatedAt:     now,
			}).Error; err != nil {
				return err
			}
		}
		result = ledgerdomain.CreateEntryResult{EntryID: entry.ID, Inserted: true}
		return nil
	})
	if err != nil {
		return ledgerdomain.CreateEntryResult{}, err
	}

	if result.Inserted {
		s.audit(ctx, parishID, result.EntryID, sourceType, sourceID)
	} else {
		s.log.Debug("ledger entry already posted",
			zap.String("source_type", string(sourceType)),
			zap.String("source_id", sourceID),
		)
	}
	return result, nil
}

func (s *Service) ListLines(ctx context.Context, parishID string, sourceType ledgerdomain.LedgerSourceType, sourceID string) ([]ledgerdomain.LedgerEntryLine, error) {
	var lines []ledgerdomain.LedgerEntryLine
	err := s.db.WithContext(ctx).Raw(
		`SELECT l.id, l.ledger_entry_id, l.account_id, l.direction, l.currency, l.amount, l.created_at
		 FROM ledger_entry_lines l
		 JOIN ledger_entries e ON e.id = l.ledger_entry_id
		 WHERE e.parish_id = ? AND e.source_type = ? AND e.source_id = ?
		 ORDER BY l.id`,
		parishID, sourceType, sourceID,
	).Scan(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (s *Service) findEntry(ctx context.Context, tx *gorm.DB, parishID string, sourceType ledgerdomain.LedgerSourceType, sourceID string) (*ledgerdomain.LedgerEntry, error) {
	var entry ledgerdomain.LedgerEntry
	err := tx.WithContext(ctx).
		Where("parish_id = ? AND source_type = ? AND source_id = ?", parishID, sourceType, sourceID).
		Take(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// ensureAccount returns the parish account for code, creating it on first use.
func (s *Service) ensureAccount(ctx context.Context, tx *gorm.DB, parishID string, code ledgerdomain.LedgerAccountCode) (snowflake.ID, error) {
	var account ledgerdomain.LedgerAccount
	err := tx.WithContext(ctx).Where("parish_id = ? AND code = ?", parishID, code).Take(&account).Error
	if err == nil {
		return account.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	name := accountNames[code]
	if name == "" {
		name = string(code)
	}
	account = ledgerdomain.LedgerAccount{
		ID:        s.genID.Generate(),
		ParishID:  parishID,
		Code:      code,
		Name:      name,
		CreatedAt: s.clock.Now(),
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&account)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		if err := tx.WithContext(ctx).Where("parish_id = ? AND code = ?", parishID, code).Take(&account).Error; err != nil {
			return 0, err
		}
	}
	return account.ID, nil
}

func (s *Service) audit(ctx context.Context, parishID string, entryID snowflake.ID, sourceType ledgerdomain.LedgerSourceType, sourceID string) {
	if s.auditSvc == nil {
		return
	}
	err := s.auditSvc.Record(ctx, auditdomain.Entry{
		ParishID:   parishID,
		Action:     "ledger.entry_created",
		TargetType: "ledger_entry",
		TargetID:   entryID.String(),
		Metadata: map[string]any{
			"source_type": string(sourceType),
			"source_id":   sourceID,
		},
	})
	if err != nil {
		s.log.Warn("failed to write ledger audit log", zap.Error(err))
	}
}

func normalizeDirection(direction ledgerdomain.LedgerEntryDirection) (ledgerdomain.LedgerEntryDirection, error) {
	switch strings.ToLower(strings.TrimSpace(string(direction))) {
	case string(ledgerdomain.LedgerEntryDirectionDebit):
		return ledgerdomain.LedgerEntryDirectionDebit, nil
	case string(ledgerdomain.LedgerEntryDirectionCredit):
		return ledgerdomain.LedgerEntryDirectionCredit, nil
	default:
		return "", ledgerdomain.ErrInvalidLineDirection
	}
}
