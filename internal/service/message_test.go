package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dropmail/backend/internal/domain"
	"dropmail/backend/internal/storage/filesystem"
	"dropmail/backend/internal/storage/memory"
)

type captureNotifier struct {
	localParts []string
	summaries  []domain.MessageSummary
}

func (n *captureNotifier) NotifyNewMail(localPart string, summary domain.MessageSummary) {
	n.localParts = append(n.localParts, localPart)
	n.summaries = append(n.summaries, summary)
}

type messageFixture struct {
	store    *memory.Store
	files    *filesystem.Store
	messages *MessageService
	notifier *captureNotifier
}

func newMessageFixture(t *testing.T) *messageFixture {
	t.Helper()

	store := memory.NewStore()
	files, err := filesystem.NewStore(t.TempDir())
	require.NoError(t, err)

	notifier := &captureNotifier{}
	messages := NewMessageService(store, files, notifier, zap.NewNop())

	return &messageFixture{
		store:    store,
		files:    files,
		messages: messages,
		notifier: notifier,
	}
}

func (f *messageFixture) deliver(t *testing.T, subject string) *domain.Message {
	t.Helper()
	msg := &domain.Message{
		LocalPart: "alice",
		Sender:    "bob@example.com",
		Subject:   subject,
		Text:      "hello",
		CreatedAt: time.Now(),
	}
	require.NoError(t, f.messages.Deliver(msg))
	return msg
}

func TestMessageList(t *testing.T) {
	t.Run("按倒序返回摘要", func(t *testing.T) {
		f := newMessageFixture(t)
		f.deliver(t, "first")
		f.deliver(t, "second")

		summaries, err := f.messages.List("alice")
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Equal(t, "second", summaries[0].Subject)
	})

	t.Run("空邮箱返回空列表", func(t *testing.T) {
		f := newMessageFixture(t)

		summaries, err := f.messages.List("alice")
		require.NoError(t, err)
		assert.Empty(t, summaries)
	})
}

func TestMessageGet(t *testing.T) {
	t.Run("按ID取回完整邮件", func(t *testing.T) {
		f := newMessageFixture(t)
		delivered := f.deliver(t, "hello")

		got, err := f.messages.Get("alice", delivered.ID)
		require.NoError(t, err)
		assert.Equal(t, "hello", got.Subject)
		assert.Equal(t, "bob@example.com", got.Sender)
	})

	t.Run("不存在的ID返回未找到", func(t *testing.T) {
		f := newMessageFixture(t)

		_, err := f.messages.Get("alice", 42)
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	})

	t.Run("邮件不属于该邮箱时返回未找到", func(t *testing.T) {
		f := newMessageFixture(t)
		delivered := f.deliver(t, "hello")

		_, err := f.messages.Get("carol", delivered.ID)
		assert.ErrorIs(t, err, domain.ErrMessageNotFound)
	})
}

func TestMessageGetAttachment(t *testing.T) {
	t.Run("取回附件内容", func(t *testing.T) {
		f := newMessageFixture(t)

		ref, err := f.files.Save("doc.pdf", []byte("pdf-data"))
		require.NoError(t, err)

		msg := &domain.Message{
			LocalPart:   "alice",
			Sender:      "bob@example.com",
			Subject:     "with attachment",
			Attachments: []*domain.AttachmentRef{ref},
			CreatedAt:   time.Now(),
		}
		require.NoError(t, f.messages.Deliver(msg))

		gotRef, content, err := f.messages.GetAttachment("alice", msg.ID, ref.StoredName)
		require.NoError(t, err)
		assert.Equal(t, "doc.pdf", gotRef.OriginalName)
		assert.Equal(t, []byte("pdf-data"), content)
	})

	t.Run("存储键不属于该邮件时返回未找到", func(t *testing.T) {
		f := newMessageFixture(t)

		other, err := f.files.Save("other.bin", []byte("x"))
		require.NoError(t, err)

		msg := f.deliver(t, "no attachments")

		_, _, err = f.messages.GetAttachment("alice", msg.ID, other.StoredName)
		assert.ErrorIs(t, err, domain.ErrAttachmentNotFound)
	})
}

func TestMessageDeliver(t *testing.T) {
	t.Run("落库并触发通知", func(t *testing.T) {
		f := newMessageFixture(t)
		msg := f.deliver(t, "notify me")

		assert.NotZero(t, msg.ID)
		require.Len(t, f.notifier.localParts, 1)
		assert.Equal(t, "alice", f.notifier.localParts[0])
		assert.Equal(t, "notify me", f.notifier.summaries[0].Subject)
	})

	t.Run("通知器为空时不恐慌", func(t *testing.T) {
		store := memory.NewStore()
		files, err := filesystem.NewStore(t.TempDir())
		require.NoError(t, err)
		messages := NewMessageService(store, files, nil, zap.NewNop())

		assert.NoError(t, messages.Deliver(&domain.Message{
			LocalPart: "alice",
			CreatedAt: time.Now(),
		}))
	})
}
