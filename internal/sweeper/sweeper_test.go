package sweeper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dropmail/backend/internal/domain"
	"dropmail/backend/internal/storage/filesystem"
	"dropmail/backend/internal/storage/memory"
)

type sweeperFixture struct {
	store   *memory.Store
	files   *filesystem.Store
	sweeper *Sweeper
}

func newSweeperFixture(t *testing.T) *sweeperFixture {
	t.Helper()

	store := memory.NewStore()
	files, err := filesystem.NewStore(t.TempDir())
	require.NoError(t, err)

	return &sweeperFixture{
		store:   store,
		files:   files,
		sweeper: New(store, files, 30*24*time.Hour, time.Hour, 2, nil, zap.NewNop()),
	}
}

func (f *sweeperFixture) storeMessage(t *testing.T, age time.Duration, withAttachment bool) *domain.Message {
	t.Helper()

	msg := &domain.Message{
		LocalPart: "alice",
		Sender:    "bob@example.com",
		Subject:   "old mail",
		CreatedAt: time.Now().UTC().Add(-age),
	}
	if withAttachment {
		ref, err := f.files.Save("file.bin", []byte("data"))
		require.NoError(t, err)
		msg.Attachments = []*domain.AttachmentRef{ref}
	}
	require.NoError(t, f.store.SaveMessage(msg))
	return msg
}

func TestSweepOnce(t *testing.T) {
	t.Run("删除过期邮件与附件", func(t *testing.T) {
		f := newSweeperFixture(t)
		old := f.storeMessage(t, 31*24*time.Hour, true)
		fresh := f.storeMessage(t, 29*24*time.Hour, false)

		count, err := f.sweeper.SweepOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		// 过期邮件与附件都不在了
		_, err = f.store.GetMessage("alice", old.ID)
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)
		_, err = f.files.Read(old.Attachments[0].StoredName)
		assert.ErrorIs(t, err, domain.ErrAttachmentNotFound)

		// 未过期的邮件完好
		_, err = f.store.GetMessage("alice", fresh.ID)
		assert.NoError(t, err)
	})

	t.Run("附件已被手工删除时不报错", func(t *testing.T) {
		f := newSweeperFixture(t)
		old := f.storeMessage(t, 31*24*time.Hour, true)
		require.NoError(t, f.files.Delete(old.Attachments[0].StoredName))

		count, err := f.sweeper.SweepOnce(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})

	t.Run("无过期邮件时是空跑", func(t *testing.T) {
		f := newSweeperFixture(t)
		f.storeMessage(t, time.Hour, true)

		count, err := f.sweeper.SweepOnce(context.Background())
		require.NoError(t, err)
		assert.Zero(t, count)

		total, err := f.store.CountMessages()
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
	})

	t.Run("并发清理只允许一轮", func(t *testing.T) {
		f := newSweeperFixture(t)
		for i := 0; i < 50; i++ {
			f.storeMessage(t, 31*24*time.Hour, true)
		}

		var wg sync.WaitGroup
		results := make([]error, 4)
		counts := make([]int, 4)
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				counts[idx], results[idx] = f.sweeper.SweepOnce(context.Background())
			}(i)
		}
		wg.Wait()

		totalDeleted := 0
		for i := range results {
			if results[i] != nil {
				assert.ErrorIs(t, results[i], ErrSweepInProgress)
				assert.Zero(t, counts[i])
				continue
			}
			totalDeleted += counts[i]
		}
		assert.Equal(t, 50, totalDeleted)
	})
}
