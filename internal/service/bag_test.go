package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calliehq/bramble/internal/domain"
)

func newBagFixture() (*BagService, *mockSessionStore, *domain.Session) {
	session := &domain.Session{Token: "tok_abc", Bag: domain.Bag{}}
	sessions := newMockSessionStore(session)
	svc := NewBagService(sessions, newMockCatalog(testProducts()...), nil, testLogger())
	return svc, sessions, session
}

func TestBagAdd(t *testing.T) {
	svc, _, session := newBagFixture()

	require.NoError(t, svc.Add(context.Background(), session, "7", 2))
	require.NoError(t, svc.Add(context.Background(), session, "7", 1))

	assert.Equal(t, 3, session.Bag["7"])
}

func TestBagAdd_CoercesQuantityToOne(t *testing.T) {
	svc, _, session := newBagFixture()

	require.NoError(t, svc.Add(context.Background(), session, "7", 0))
	assert.Equal(t, 1, session.Bag["7"])

	require.NoError(t, svc.Add(context.Background(), session, "9", -5))
	assert.Equal(t, 1, session.Bag["9"])
}

func TestBagAdd_CanonicalizesProductID(t *testing.T) {
	svc, _, session := newBagFixture()

	require.NoError(t, svc.Add(context.Background(), session, "007", 2))
	require.NoError(t, svc.Add(context.Background(), session, "+7", 1))

	assert.Equal(t, domain.Bag{"7": 3}, session.Bag, "every encoding of 7 lands on the same line")
}

func TestBagAdd_InvalidProductID(t *testing.T) {
	svc, _, session := newBagFixture()

	err := svc.Add(context.Background(), session, "not-a-number", 1)
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

	err = svc.Add(context.Background(), session, "-3", 1)
	require.Error(t, err)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))
}

func TestBagAdd_ProductNotFound(t *testing.T) {
	svc, _, session := newBagFixture()

	err := svc.Add(context.Background(), session, "404", 1)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	assert.Empty(t, session.Bag)
}

func TestBagAdjust(t *testing.T) {
	svc, _, session := newBagFixture()
	session.Bag = domain.Bag{"7": 2}

	require.NoError(t, svc.Adjust(context.Background(), session, "7", 5))
	assert.Equal(t, 5, session.Bag["7"])
}

func TestBagAdjust_ZeroRemovesLine(t *testing.T) {
	svc, _, session := newBagFixture()
	session.Bag = domain.Bag{"7": 2}

	require.NoError(t, svc.Adjust(context.Background(), session, "7", 0))
	assert.NotContains(t, session.Bag, "7")
}

func TestBagAdjust_CanonicalizesProductID(t *testing.T) {
	svc, _, session := newBagFixture()
	session.Bag = domain.Bag{"7": 2}

	require.NoError(t, svc.Adjust(context.Background(), session, "007", 5))
	assert.Equal(t, domain.Bag{"7": 5}, session.Bag)
}

func TestBagAdjust_LineNotInBag(t *testing.T) {
	svc, _, session := newBagFixture()

	err := svc.Adjust(context.Background(), session, "7", 3)
	require.Error(t, err)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
}

func TestBagRemove(t *testing.T) {
	svc, sessions, session := newBagFixture()
	session.Bag = domain.Bag{"7": 2, "9": 1}

	require.NoError(t, svc.Remove(context.Background(), session, "7"))
	assert.Equal(t, domain.Bag{"9": 1}, session.Bag)
	assert.Equal(t, domain.Bag{"9": 1}, sessions.Sessions["tok_abc"].Bag)
}

func TestBagRemove_AbsentLineIsNoop(t *testing.T) {
	svc, _, session := newBagFixture()

	require.NoError(t, svc.Remove(context.Background(), session, "7"))
	assert.Empty(t, session.Bag)
}
