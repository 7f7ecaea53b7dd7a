package smtp

import (
	"strings"
	"testing"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dropmail/backend/internal/service"
	"dropmail/backend/internal/storage/filesystem"
	"dropmail/backend/internal/storage/memory"
)

type backendFixture struct {
	store   *memory.Store
	files   *filesystem.Store
	backend *Backend
}

func newBackendFixture(t *testing.T, limiter *DeliveryLimiter) *backendFixture {
	t.Helper()

	store := memory.NewStore()
	files, err := filesystem.NewStore(t.TempDir())
	require.NoError(t, err)

	messages := service.NewMessageService(store, files, nil, zap.NewNop())
	backend := NewBackend(messages, files, limiter, nil, zap.NewNop(), 10<<20)

	return &backendFixture{
		store:   store,
		files:   files,
		backend: backend,
	}
}

func (f *backendFixture) newSession(t *testing.T, from, to string) *session {
	t.Helper()
	sess, err := f.backend.NewSession(nil)
	require.NoError(t, err)
	s := sess.(*session)
	require.NoError(t, s.Mail(from, nil))
	require.NoError(t, s.Rcpt(to, nil))
	return s
}

func smtpCode(t *testing.T, err error) int {
	t.Helper()
	var smtpErr *gosmtp.SMTPError
	require.ErrorAs(t, err, &smtpErr)
	return smtpErr.Code
}

func TestSessionData(t *testing.T) {
	t.Run("成功投递落库", func(t *testing.T) {
		f := newBackendFixture(t, nil)
		s := f.newSession(t, "<bob@example.com>", "<Alice@drop.mail>")

		require.NoError(t, s.Data(strings.NewReader(multipartMail)))

		summaries, err := f.store.ListMessages("alice")
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Equal(t, "with attachment", summaries[0].Subject)

		msg, err := f.store.GetMessage("alice", summaries[0].ID)
		require.NoError(t, err)
		require.Len(t, msg.Attachments, 1)
		assert.Equal(t, "report.pdf", msg.Attachments[0].OriginalName)

		content, err := f.files.Read(msg.Attachments[0].StoredName)
		require.NoError(t, err)
		assert.Equal(t, []byte("pdf-bytes"), content)
	})

	t.Run("未注册前缀的邮件照常存储", func(t *testing.T) {
		f := newBackendFixture(t, nil)
		s := f.newSession(t, "<bob@example.com>", "<nobody@drop.mail>")

		require.NoError(t, s.Data(strings.NewReader(simpleMail)))

		count, err := f.store.CountMessages()
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})

	t.Run("解析失败返回554且不留部分结果", func(t *testing.T) {
		f := newBackendFixture(t, nil)
		s := f.newSession(t, "<bob@example.com>", "<alice@drop.mail>")

		err := s.Data(strings.NewReader("this is not a header line\r\n\r\nbody\r\n"))
		assert.Equal(t, 554, smtpCode(t, err))

		count, err := f.store.CountMessages()
		require.NoError(t, err)
		assert.Zero(t, count)

		fileCount, _, err := f.files.Stats()
		require.NoError(t, err)
		assert.Zero(t, fileCount)
	})

	t.Run("限流时返回451", func(t *testing.T) {
		limiter := NewDeliveryLimiter(0.001, 1)
		f := newBackendFixture(t, limiter)

		s := f.newSession(t, "<bob@example.com>", "<alice@drop.mail>")
		require.NoError(t, s.Data(strings.NewReader(simpleMail)))

		s2 := f.newSession(t, "<bob@example.com>", "<alice@drop.mail>")
		err := s2.Data(strings.NewReader(simpleMail))
		assert.Equal(t, 451, smtpCode(t, err))
	})

	t.Run("第一个收件人决定目标邮箱", func(t *testing.T) {
		f := newBackendFixture(t, nil)
		s := f.newSession(t, "<bob@example.com>", "<first@drop.mail>")
		require.NoError(t, s.Rcpt("<second@drop.mail>", nil))

		require.NoError(t, s.Data(strings.NewReader(simpleMail)))

		summaries, err := f.store.ListMessages("first")
		require.NoError(t, err)
		assert.Len(t, summaries, 1)

		summaries, err = f.store.ListMessages("second")
		require.NoError(t, err)
		assert.Empty(t, summaries)
	})
}

func TestSessionReset(t *testing.T) {
	f := newBackendFixture(t, nil)
	s := f.newSession(t, "<bob@example.com>", "<alice@drop.mail>")

	s.Reset()
	assert.Empty(t, s.fromAddress)
	assert.Empty(t, s.localPart)
	assert.NoError(t, s.Logout())
}

func TestDeliveryLimiter(t *testing.T) {
	t.Run("非正速率不限流", func(t *testing.T) {
		limiter := NewDeliveryLimiter(0, 0)
		for i := 0; i < 100; i++ {
			assert.True(t, limiter.Allow())
		}
	})

	t.Run("超过突发容量被拒绝", func(t *testing.T) {
		limiter := NewDeliveryLimiter(0.001, 2)
		assert.True(t, limiter.Allow())
		assert.True(t, limiter.Allow())
		assert.False(t, limiter.Allow())
	})
}
