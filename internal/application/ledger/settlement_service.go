package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SettlementService records refunds and payments against posted documents
type SettlementService struct {
	scope TransactionScope
	serviceConfig
}

// NewSettlementService creates a new SettlementService
func NewSettlementService(scope TransactionScope, opts ...ServiceOption) *SettlementService {
	return &SettlementService{
		scope:         scope,
		serviceConfig: newServiceConfig(opts),
	}
}

// Settle applies cmd.Amount against an OPEN or PARTIALLY_PAID document. It
// writes a balanced REFUND journal between the contra and deposit
// categories, lowers the due amount and moves the linked bank balance.
func (s *SettlementService) Settle(ctx context.Context, cmd SettleCommand) (result *SettleResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "settlement", "settle")
	defer span.End()
	ctx = s.actingAs(ctx, cmd.UserID)
	started := time.Now()
	defer func() { s.finish(ctx, span, "settle", started, err) }()

	if err = validateCommand(cmd); err != nil {
		return nil, err
	}
	if !cmd.Amount.IsPositive() {
		return nil, ledger.ErrInvalidAmount.WithMessage(
			fmt.Sprintf("Settlement amount %s must be greater than zero", cmd.Amount.String()))
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrDocumentID, cmd.DocumentID.String(),
		telemetry.SpanAttrAmount, cmd.Amount.String(),
	)

	var doc *ledger.Document
	var journal *ledger.Journal
	err = s.withDocumentLock(ctx, cmd.DocumentID, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			doc, journal, err = s.settle(ctx, repos, cmd)
			return err
		})
	})
	if err != nil {
		logger.L(ctx).Error("failed to settle document",
			zap.String("document_id", cmd.DocumentID.String()),
			zap.String("amount", cmd.Amount.String()),
			zap.String("error_kind", string(ledger.ErrorKind(err))),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to settle document %s: %w", cmd.DocumentID, err)
	}

	telemetry.SetAttributes(span, telemetry.SpanAttrJournalID, journal.ID.String())
	s.metrics.RecordJournal(ctx, journal.ReferenceType.String(), len(journal.Lines))
	s.metrics.RecordSettlement(ctx, doc.Kind.String())
	logger.L(ctx).Info("document settled",
		zap.String("document_number", doc.Number),
		zap.String("amount", cmd.Amount.String()),
		zap.String("due_after", doc.DueAmount.String()),
		zap.String("status", doc.Status.String()),
	)
	return &SettleResult{
		JournalID:   journal.ID,
		DueAfter:    doc.DueAmount,
		StatusAfter: doc.Status.String(),
	}, nil
}

func (s *SettlementService) settle(ctx context.Context, repos TransactionalRepositories, cmd SettleCommand) (*ledger.Document, *ledger.Journal, error) {
	doc, err := repos.Documents().FindByID(ctx, cmd.DocumentID)
	if err != nil {
		return nil, nil, err
	}
	transition, err := doc.ApplySettlement(cmd.Amount)
	if err != nil {
		return nil, nil, err
	}

	contraID, err := repos.ContactCategories().FindCategoryID(ctx, doc.ContactID, doc.Kind.ContraRole())
	if err != nil {
		return nil, nil, err
	}
	found, err := repos.Categories().FindByIDs(ctx, []uuid.UUID{contraID, cmd.DepositCategoryID})
	if err != nil {
		return nil, nil, err
	}
	index := ledger.NewCategoryIndex(found)
	contra, err := index.Get(contraID)
	if err != nil {
		return nil, nil, err
	}
	deposit, err := index.Get(cmd.DepositCategoryID)
	if err != nil {
		return nil, nil, err
	}

	lines, err := ledger.AssembleSettlement(doc, contra, deposit, cmd.Amount)
	if err != nil {
		return nil, nil, err
	}
	description := cmd.Description
	if description == "" {
		description = fmt.Sprintf("Settlement %s", doc.Number)
	}
	journal, err := ledger.NewJournal(ledger.RefRefund, doc.ID, s.clock(), description, cmd.UserID, lines)
	if err != nil {
		return nil, nil, err
	}
	if err := repos.Journals().Create(ctx, journal); err != nil {
		return nil, nil, fmt.Errorf("failed to create settlement journal: %w", err)
	}
	if err := repos.Documents().SaveWithLock(ctx, doc); err != nil {
		return nil, nil, err
	}

	bankID, err := moveBankBalance(ctx, repos, doc, cmd.DepositCategoryID, cmd.Amount)
	if err != nil {
		return nil, nil, err
	}

	event := ledger.NewSettlementEvent(doc, journal.ID, bankID, cmd.Amount, transition, cmd.UserID, description)
	event.SettledAt = s.clock()
	if err := repos.Settlements().Create(ctx, event); err != nil {
		return nil, nil, fmt.Errorf("failed to record settlement: %w", err)
	}
	if err := repos.Events().SaveEvents(ctx,
		ledger.NewJournalPostedEvent(journal, doc),
		ledger.NewDocumentSettledEvent(doc, event),
	); err != nil {
		return nil, nil, fmt.Errorf("failed to save ledger events: %w", err)
	}
	return doc, journal, nil
}

// moveBankBalance updates the bank account linked to the deposit category,
// if any, and returns its ID
func moveBankBalance(ctx context.Context, repos TransactionalRepositories, doc *ledger.Document, depositCategoryID uuid.UUID, amount decimal.Decimal) (*uuid.UUID, error) {
	bank, err := repos.BankAccounts().FindByCategoryID(ctx, depositCategoryID)
	if err != nil {
		if errors.Is(err, ledger.ErrBankAccountNotFound) {
			return nil, nil
		}
		return nil, err
	}
	moved := bank.AmountFor(doc.Currency, amount, doc.Rate().ToBase(amount))
	if err := bank.Apply(doc.Kind.SettlementFlag(), moved); err != nil {
		return nil, err
	}
	if err := repos.BankAccounts().SaveWithLock(ctx, bank); err != nil {
		return nil, err
	}
	return &bank.ID, nil
}
