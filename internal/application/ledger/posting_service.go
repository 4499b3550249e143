package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/erp/ledger/internal/infrastructure/logger"
	"github.com/erp/ledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PostingService turns documents into journals and reverses them
type PostingService struct {
	scope     TransactionScope
	inventory *InventoryService
	serviceConfig
}

// NewPostingService creates a new PostingService
func NewPostingService(scope TransactionScope, inventory *InventoryService, opts ...ServiceOption) *PostingService {
	return &PostingService{
		scope:         scope,
		inventory:     inventory,
		serviceConfig: newServiceConfig(opts),
	}
}

// Post posts a PENDING document: the journal, inventory movements, the
// OPEN status with the full total due and the outbox event commit together.
// Expenses paid in cash or by bank are settled in the same transaction.
func (s *PostingService) Post(ctx context.Context, cmd PostCommand) (result *PostResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "posting", "post")
	defer span.End()
	ctx = s.actingAs(ctx, cmd.UserID)
	started := time.Now()
	defer func() { s.finish(ctx, span, "post", started, err) }()

	if err = validateCommand(cmd); err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrDocumentID, cmd.DocumentID.String())

	var journal *ledger.Journal
	var doc *ledger.Document
	err = s.withDocumentLock(ctx, cmd.DocumentID, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			doc, journal, result, err = s.post(ctx, repos, cmd)
			return err
		})
	})
	if err != nil {
		logger.L(ctx).Error("failed to post document",
			zap.String("document_id", cmd.DocumentID.String()),
			zap.String("error_kind", string(ledger.ErrorKind(err))),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to post document %s: %w", cmd.DocumentID, err)
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrDocumentKind, doc.Kind.String(),
		telemetry.SpanAttrDocumentNumber, doc.Number,
		telemetry.SpanAttrJournalID, journal.ID.String(),
		telemetry.SpanAttrJournalNumber, journal.Number,
		telemetry.SpanAttrLineCount, len(journal.Lines),
	)
	s.metrics.RecordJournal(ctx, journal.ReferenceType.String(), len(journal.Lines))
	if result.Settled {
		s.metrics.RecordSettlement(ctx, doc.Kind.String())
	}
	logger.L(ctx).Info("document posted",
		zap.String("document_id", doc.ID.String()),
		zap.String("document_number", doc.Number),
		zap.String("kind", doc.Kind.String()),
		zap.String("journal_number", journal.Number),
		zap.Int("lines", len(journal.Lines)),
		zap.Bool("settled", result.Settled),
	)
	return result, nil
}

func (s *PostingService) post(ctx context.Context, repos TransactionalRepositories, cmd PostCommand) (*ledger.Document, *ledger.Journal, *PostResult, error) {
	doc, err := repos.Documents().FindByID(ctx, cmd.DocumentID)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := doc.EnsurePending(); err != nil {
		return nil, nil, nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, nil, nil, err
	}
	if err := doc.EnsureStockSettled(); err != nil {
		return nil, nil, nil, err
	}
	decision := ledger.NewPostingDecision(doc)

	set, err := loadCategorySet(ctx, repos)
	if err != nil {
		return nil, nil, nil, err
	}
	products, err := loadProducts(ctx, repos, doc)
	if err != nil {
		return nil, nil, nil, err
	}
	inventoryAsset, _ := set.Get(ledger.CodeInventoryAsset)
	aggregates, err := ledger.ResolveCategories(decision, doc.Lines, products, inventoryAsset)
	if err != nil {
		return nil, nil, nil, err
	}

	contraID, bank, err := resolveContra(ctx, repos, doc, set)
	if err != nil {
		return nil, nil, nil, err
	}
	ids := make([]uuid.UUID, 0, len(aggregates)+1)
	ids = append(ids, contraID)
	for _, agg := range aggregates {
		ids = append(ids, agg.CategoryID)
	}
	found, err := repos.Categories().FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, nil, err
	}
	index := ledger.NewCategoryIndex(found)
	contra, err := index.Get(contraID)
	if err != nil {
		return nil, nil, nil, err
	}

	movement, err := s.inventory.ApplyPosting(ctx, repos, doc, products)
	if err != nil {
		return nil, nil, nil, err
	}

	lines, err := ledger.AssemblePosting(ledger.PostingInput{
		Decision:       decision,
		Document:       doc,
		ContraCategory: contra,
		Aggregates:     aggregates,
		Categories:     index,
		Set:            set,
		InventoryCost:  movement.RestoredCost,
	})
	if err != nil {
		return nil, nil, nil, err
	}
	description := fmt.Sprintf("%s %s", doc.Kind, doc.Number)
	journal, err := ledger.NewJournal(decision.ReferenceType, doc.ID, s.clock(), description, cmd.UserID, lines)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := repos.Journals().Create(ctx, journal); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to create journal: %w", err)
	}

	doc.StockMoved = movement.Participated
	if err := doc.MarkPosted(); err != nil {
		return nil, nil, nil, err
	}
	if err := repos.Documents().SaveWithLock(ctx, doc); err != nil {
		return nil, nil, nil, err
	}

	result := &PostResult{
		JournalID:     journal.ID,
		JournalNumber: journal.Number,
		Shortfalls:    movement.Shortfalls,
	}
	events := []shared.DomainEvent{ledger.NewJournalPostedEvent(journal, doc)}

	if decision.SettleOnPost && doc.TotalAmount.IsPositive() {
		settlement, err := s.settleOnPost(ctx, repos, doc, journal, bank, cmd.UserID)
		if err != nil {
			return nil, nil, nil, err
		}
		result.Settled = true
		events = append(events, ledger.NewDocumentSettledEvent(doc, settlement))
	}

	if err := repos.Events().SaveEvents(ctx, events...); err != nil {
		return nil, nil, nil, fmt.Errorf("failed to save ledger events: %w", err)
	}
	return doc, journal, result, nil
}

// settleOnPost closes an expense paid when recorded. The posting journal
// already moved the money, so the settlement references it instead of
// writing a second journal.
func (s *PostingService) settleOnPost(ctx context.Context, repos TransactionalRepositories, doc *ledger.Document, journal *ledger.Journal, bank *ledger.BankAccount, userID uuid.UUID) (*ledger.SettlementEvent, error) {
	amount := doc.TotalAmount
	transition, err := doc.ApplySettlement(amount)
	if err != nil {
		return nil, err
	}
	if err := repos.Documents().SaveWithLock(ctx, doc); err != nil {
		return nil, err
	}

	var bankID *uuid.UUID
	if bank != nil {
		moved := bank.AmountFor(doc.Currency, amount, doc.Rate().ToBase(amount))
		if err := bank.Apply(doc.Kind.SettlementFlag(), moved); err != nil {
			return nil, err
		}
		if err := repos.BankAccounts().SaveWithLock(ctx, bank); err != nil {
			return nil, err
		}
		bankID = &bank.ID
	}

	event := ledger.NewSettlementEvent(doc, journal.ID, bankID, amount, transition, userID,
		fmt.Sprintf("Paid by %s on posting %s", doc.PayMode, doc.Number))
	if err := repos.Settlements().Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record settlement: %w", err)
	}
	return event, nil
}

// Reverse writes a REVERSE_* journal for every live journal of the
// reference and flags the originals. An OPEN document returns to PENDING
// so it can be posted again; a settled document is a state conflict.
func (s *PostingService) Reverse(ctx context.Context, cmd ReverseCommand) (result *ReverseResult, err error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "posting", "reverse")
	defer span.End()
	ctx = s.actingAs(ctx, cmd.UserID)
	started := time.Now()
	defer func() { s.finish(ctx, span, "reverse", started, err) }()

	if err = validateCommand(cmd); err != nil {
		return nil, err
	}
	refType, err := ledger.ParseReferenceType(cmd.ReferenceType)
	if err != nil {
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrReferenceType, refType.String(),
		telemetry.SpanAttrDocumentID, cmd.ReferenceID.String(),
	)

	var reversals []*ledger.Journal
	err = s.withDocumentLock(ctx, cmd.ReferenceID, func() error {
		return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			reversals, result, err = s.reverse(ctx, repos, refType, cmd)
			return err
		})
	})
	if err != nil {
		logger.L(ctx).Error("failed to reverse journals",
			zap.String("reference_type", refType.String()),
			zap.String("reference_id", cmd.ReferenceID.String()),
			zap.String("error_kind", string(ledger.ErrorKind(err))),
			zap.Error(err),
		)
		return nil, fmt.Errorf("failed to reverse %s %s: %w", refType, cmd.ReferenceID, err)
	}

	for _, j := range reversals {
		s.metrics.RecordJournal(ctx, j.ReferenceType.String(), len(j.Lines))
	}
	kind, _ := refType.DocumentKind()
	s.metrics.RecordReversal(ctx, kind.String())
	telemetry.SetAttributes(span, telemetry.SpanAttrJournalID, result.JournalID.String())
	logger.L(ctx).Info("journals reversed",
		zap.String("reference_type", refType.String()),
		zap.String("reference_id", cmd.ReferenceID.String()),
		zap.Int("reversals", len(reversals)),
		zap.Bool("document_reset", result.DocumentReset),
	)
	return result, nil
}

func (s *PostingService) reverse(ctx context.Context, repos TransactionalRepositories, refType ledger.ReferenceType, cmd ReverseCommand) ([]*ledger.Journal, *ReverseResult, error) {
	journals, err := repos.Journals().FindActiveByReference(ctx, refType, cmd.ReferenceID)
	if err != nil {
		return nil, nil, err
	}
	journals = ledger.DistinctJournals(journals)
	if len(journals) == 0 {
		return nil, nil, ledger.ErrJournalNotFound.WithMessage(
			fmt.Sprintf("No active %s journal for %s", refType, cmd.ReferenceID))
	}

	doc, err := repos.Documents().FindByID(ctx, cmd.ReferenceID)
	if err != nil && !errors.Is(err, ledger.ErrDocumentNotFound) {
		return nil, nil, err
	}

	result := &ReverseResult{}
	restoreBank := false
	if doc != nil {
		restoreBank = doc.Status == ledger.StatusClosed && doc.SettledOnPost()
		before := doc.Status
		if err := doc.ResetToPending(); err != nil {
			return nil, nil, err
		}
		if before != doc.Status {
			if err := repos.Documents().SaveWithLock(ctx, doc); err != nil {
				return nil, nil, err
			}
			result.DocumentReset = true
		}
	} else {
		logger.L(ctx).Warn("reversing journals of a missing document",
			zap.String("reference_id", cmd.ReferenceID.String()))
	}

	now := s.clock()
	reversals := make([]*ledger.Journal, 0, len(journals))
	originalIDs := make([]uuid.UUID, 0, len(journals))
	events := make([]shared.DomainEvent, 0, len(journals))
	for _, original := range journals {
		reversal, err := ledger.AssembleReversal(original, cmd.UserID, now)
		if err != nil {
			return nil, nil, err
		}
		if err := repos.Journals().Create(ctx, reversal); err != nil {
			return nil, nil, fmt.Errorf("failed to create reversal journal: %w", err)
		}
		reversals = append(reversals, reversal)
		originalIDs = append(originalIDs, original.ID)
		events = append(events, ledger.NewJournalReversedEvent(reversal, original))
		result.ReversalIDs = append(result.ReversalIDs, reversal.ID)
	}
	if err := repos.Journals().MarkReversed(ctx, originalIDs); err != nil {
		return nil, nil, err
	}

	if restoreBank {
		restored, err := s.restoreBankFunds(ctx, repos, doc, originalIDs)
		if err != nil {
			return nil, nil, err
		}
		result.RestoredBankFund = restored
	}

	if err := repos.Events().SaveEvents(ctx, events...); err != nil {
		return nil, nil, fmt.Errorf("failed to save ledger events: %w", err)
	}
	result.JournalID = reversals[len(reversals)-1].ID
	return reversals, result, nil
}

// restoreBankFunds puts back the money an expense settled on posting took
// from its bank account
func (s *PostingService) restoreBankFunds(ctx context.Context, repos TransactionalRepositories, doc *ledger.Document, journalIDs []uuid.UUID) (bool, error) {
	settlements, err := repos.Settlements().FindByDocument(ctx, doc.ID)
	if err != nil {
		return false, err
	}
	reversed := make(map[uuid.UUID]bool, len(journalIDs))
	for _, id := range journalIDs {
		reversed[id] = true
	}

	restored := false
	for _, ev := range settlements {
		if ev.BankAccountID == nil || !reversed[ev.JournalID] {
			continue
		}
		bank, err := repos.BankAccounts().FindByID(ctx, *ev.BankAccountID)
		if err != nil {
			return false, err
		}
		moved := bank.AmountFor(doc.Currency, ev.Amount, ev.BaseAmount)
		if err := bank.Apply(ev.DebitCreditFlag.Opposite(), moved); err != nil {
			return false, err
		}
		if err := repos.BankAccounts().SaveWithLock(ctx, bank); err != nil {
			return false, err
		}
		restored = true
	}
	return restored, nil
}

// loadCategorySet resolves the well-known categories once per operation
func loadCategorySet(ctx context.Context, repos TransactionalRepositories) (ledger.CategorySet, error) {
	categories, err := repos.Categories().FindByCodes(ctx, ledger.AllCategoryCodes())
	if err != nil {
		return ledger.CategorySet{}, err
	}
	return ledger.NewCategorySet(categories), nil
}

// resolveContra returns the receivable, payable, bank or petty cash
// category the document posts against, plus the bank account whose
// balance moves when an expense is paid on posting.
func resolveContra(ctx context.Context, repos TransactionalRepositories, doc *ledger.Document, set ledger.CategorySet) (uuid.UUID, *ledger.BankAccount, error) {
	if doc.Kind != ledger.KindExpense || doc.PayMode == ledger.PayModeCredit {
		id, err := repos.ContactCategories().FindCategoryID(ctx, doc.ContactID, doc.Kind.ContraRole())
		return id, nil, err
	}

	if doc.PayMode == ledger.PayModeBank {
		if doc.BankAccountID == nil {
			return uuid.Nil, nil, ledger.ErrBankAccountNotFound.WithMessage(
				fmt.Sprintf("Expense %s is paid by bank but names no bank account", doc.Number))
		}
		bank, err := repos.BankAccounts().FindByID(ctx, *doc.BankAccountID)
		if err != nil {
			return uuid.Nil, nil, err
		}
		return bank.CategoryID, bank, nil
	}

	pettyCash, err := set.Get(ledger.CodePettyCash)
	if err != nil {
		return uuid.Nil, nil, err
	}
	bank, err := repos.BankAccounts().FindByCategoryID(ctx, pettyCash.ID)
	if err != nil {
		if errors.Is(err, ledger.ErrBankAccountNotFound) {
			return pettyCash.ID, nil, nil
		}
		return uuid.Nil, nil, err
	}
	return pettyCash.ID, bank, nil
}
