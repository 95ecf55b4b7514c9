package reliability_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonesrussell/newsthreader/internal/reliability"
)

func TestSnapshotIsBlocked(t *testing.T) {
	snapshot := reliability.NewSnapshot([]reliability.DomainView{
		{Domain: "yahoo.com", Blocked: true, SuccessRate: 0.05},
		{Domain: "reuters.com", Blocked: false, SuccessRate: 0.9},
	}, 0.5)

	t.Run("exact match", func(t *testing.T) {
		assert.True(t, snapshot.IsBlocked("yahoo.com"))
	})

	t.Run("subdomain of blocked parent", func(t *testing.T) {
		assert.True(t, snapshot.IsBlocked("ca.finance.yahoo.com"))
	})

	t.Run("unblocked domain", func(t *testing.T) {
		assert.False(t, snapshot.IsBlocked("reuters.com"))
	})

	t.Run("unknown domain", func(t *testing.T) {
		assert.False(t, snapshot.IsBlocked("example.org"))
	})

	t.Run("suffix overlap without label boundary does not match", func(t *testing.T) {
		assert.False(t, snapshot.IsBlocked("notyahoo.com"))
	})

	t.Run("case and www prefix are normalized", func(t *testing.T) {
		assert.True(t, snapshot.IsBlocked("WWW.Yahoo.COM"))
	})

	t.Run("nil snapshot blocks nothing", func(t *testing.T) {
		var nilSnapshot *reliability.Snapshot
		assert.False(t, nilSnapshot.IsBlocked("yahoo.com"))
	})
}

func TestSnapshotSuccessRate(t *testing.T) {
	snapshot := reliability.NewSnapshot([]reliability.DomainView{
		{Domain: "reuters.com", SuccessRate: 0.9},
	}, 0.5)

	t.Run("known domain", func(t *testing.T) {
		assert.InDelta(t, 0.9, snapshot.SuccessRate("reuters.com"), 1e-9)
	})

	t.Run("unseen subdomain inherits parent rate", func(t *testing.T) {
		assert.InDelta(t, 0.9, snapshot.SuccessRate("uk.reuters.com"), 1e-9)
	})

	t.Run("unknown domain gets the neutral prior", func(t *testing.T) {
		assert.InDelta(t, 0.5, snapshot.SuccessRate("example.org"), 1e-9)
	})
}

func TestSnapshotBlockedCount(t *testing.T) {
	snapshot := reliability.NewSnapshot([]reliability.DomainView{
		{Domain: "a.com", Blocked: true},
		{Domain: "b.com", Blocked: true},
		{Domain: "c.com"},
	}, 0.5)

	assert.Equal(t, 2, snapshot.BlockedCount())
}
