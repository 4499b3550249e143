package persistence

import (
	"context"
	"errors"
	"testing"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/erp/ledger/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type recordingSaver struct {
	tx     any
	events []shared.DomainEvent
}

func (s *recordingSaver) SaveEvents(_ context.Context, tx any, events ...shared.DomainEvent) error {
	s.tx = tx
	s.events = append(s.events, events...)
	return nil
}

func testEvent(doc *ledger.Document) shared.DomainEvent {
	e := shared.NewBaseDomainEvent("test.event", "Document", doc.ID)
	return &e
}

func TestGormTransactionScope_Commit(t *testing.T) {
	db := newTestDB(t)
	saver := &recordingSaver{}
	scope := NewGormTransactionScope(db, saver)
	ctx := context.Background()

	doc := newCreditNote(t, "CN-100")
	err := scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		if err := repos.Documents().Save(ctx, doc); err != nil {
			return err
		}
		return repos.Events().SaveEvents(ctx, testEvent(doc))
	})
	require.NoError(t, err)

	_, err = NewGormDocumentRepository(db).FindByID(ctx, doc.ID)
	assert.NoError(t, err)
	require.Len(t, saver.events, 1)
	assert.IsType(t, &gorm.DB{}, saver.tx)
}

func TestGormTransactionScope_Rollback(t *testing.T) {
	db := newTestDB(t)
	scope := NewGormTransactionScope(db, nil)
	ctx := context.Background()

	boom := errors.New("boom")
	doc := newCreditNote(t, "CN-101")
	err := scope.Execute(ctx, func(repos appledger.TransactionalRepositories) error {
		if err := repos.Documents().Save(ctx, doc); err != nil {
			return err
		}
		// a nil saver drops events
		if err := repos.Events().SaveEvents(ctx, testEvent(doc)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = NewGormDocumentRepository(db).FindByID(ctx, doc.ID)
	assert.ErrorIs(t, err, ledger.ErrDocumentNotFound)
}
