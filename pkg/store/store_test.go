package store

import (
	"context"
	"os"
	"testing"

	"github.com/elysium-labs/elysium-pools/pkg/errs"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(b byte) solana.PublicKey {
	var k solana.PublicKey
	k[0] = b
	k[31] = b
	return k
}

func testAccountData(fill byte) []byte {
	data := make([]byte, 16)
	for i := range data {
		data[i] = fill
	}
	return data
}

// exerciseStore runs the behaviour every AccountStore must share.
func exerciseStore(t *testing.T, s AccountStore) {
	t.Helper()
	ctx := context.Background()
	a, b := testKey(201), testKey(202)

	_, err := s.Get(ctx, a)
	require.ErrorIs(t, err, errs.AccountNotFound)

	require.NoError(t, s.Commit(ctx, []Write{
		{Key: a, Data: testAccountData(1)},
		{Key: b, Data: testAccountData(2)},
	}))
	got, err := s.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, testAccountData(1), got)

	require.NoError(t, s.Commit(ctx, []Write{
		{Key: a, Data: testAccountData(3)},
		{Key: b},
	}))
	got, err = s.Get(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, testAccountData(3), got)
	_, err = s.Get(ctx, b)
	assert.ErrorIs(t, err, errs.AccountNotFound)

	require.NoError(t, s.Commit(ctx, []Write{{Key: a}}))
	require.NoError(t, s.Commit(ctx, nil))
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exerciseStore(t, m)
	assert.Empty(t, m.Keys())

	data := testAccountData(7)
	require.NoError(t, m.Commit(context.Background(), []Write{{Key: testKey(9), Data: data}, {Key: testKey(3), Data: data}}))
	data[0] = 0
	got, err := m.Get(context.Background(), testKey(9))
	require.NoError(t, err)
	assert.Equal(t, byte(7), got[0])
	assert.Equal(t, []solana.PublicKey{testKey(3), testKey(9)}, m.Keys())
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("ELYSIUM_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("ELYSIUM_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	s, err := NewPostgres(ctx, dsn)
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.EnsureSchema(ctx))

	exerciseStore(t, s)

	err = s.Commit(ctx, []Write{
		{Key: testKey(210), Data: testAccountData(1)},
		{Key: testKey(211), Data: []byte{1}},
	})
	require.Error(t, err)
	_, err = s.Get(ctx, testKey(210))
	assert.ErrorIs(t, err, errs.AccountNotFound)
}

func TestNewPostgresRequiresDSN(t *testing.T) {
	_, err := NewPostgres(context.Background(), "")
	assert.Error(t, err)
}
