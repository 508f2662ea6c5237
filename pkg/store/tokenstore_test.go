package store

import (
	"testing"
	"time"

	"github.com/hdxil/pcm-core/pkg/errtypes"
	"github.com/stretchr/testify/require"
)

func TestTokenStore_InsertGet(t *testing.T) {
	ts := NewTokenStore()
	now := time.Now()

	rec := &TokenRecord{Token: "tok-1", Sub: "client-1", ExpiresAt: now.Add(TTL).Unix()}
	ts.Insert(rec)

	got, err := ts.Get("tok-1", now)
	require.NoError(t, err)
	require.Equal(t, "client-1", got.Sub)
}

func TestTokenStore_Get_ExpiredIsDeletedOnAccess(t *testing.T) {
	ts := NewTokenStore()
	now := time.Now()

	ts.Insert(&TokenRecord{Token: "tok-1", ExpiresAt: now.Add(-time.Second).Unix()})

	_, err := ts.Get("tok-1", now)
	require.Error(t, err)
	_, ok := err.(errtypes.IsNotFound)
	require.True(t, ok)

	// a second lookup must still be not-found (it was removed, not just
	// reported as missing once).
	_, err = ts.Get("tok-1", now)
	require.Error(t, err)
}

func TestTokenStore_Get_UnknownToken(t *testing.T) {
	ts := NewTokenStore()
	_, err := ts.Get("does-not-exist", time.Now())
	require.Error(t, err)
}

func TestTokenStore_Delete(t *testing.T) {
	ts := NewTokenStore()
	now := time.Now()
	ts.Insert(&TokenRecord{Token: "tok-1", ExpiresAt: now.Add(TTL).Unix()})
	ts.Delete("tok-1")

	_, err := ts.Get("tok-1", now)
	require.Error(t, err)
}
