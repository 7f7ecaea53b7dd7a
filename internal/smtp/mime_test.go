package smtp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dropmail/backend/internal/domain"
)

const simpleMail = "From: Bob Example <bob@example.com>\r\n" +
	"To: alice@drop.mail\r\n" +
	"Subject: Hi\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"hello\r\n"

const multipartMail = "From: bob@example.com\r\n" +
	"To: alice@drop.mail\r\n" +
	"Subject: with attachment\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/mixed; boundary=BOUNDARY\r\n" +
	"\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"plain body\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>html body</p>\r\n" +
	"--BOUNDARY\r\n" +
	"Content-Type: application/pdf\r\n" +
	"Content-Disposition: attachment; filename=\"report.pdf\"\r\n" +
	"\r\n" +
	"pdf-bytes\r\n" +
	"--BOUNDARY--\r\n"

func TestParseEmail(t *testing.T) {
	t.Run("解析纯文本邮件", func(t *testing.T) {
		parsed, err := ParseEmail([]byte(simpleMail))
		require.NoError(t, err)

		assert.Equal(t, "Bob Example", parsed.Sender)
		assert.Equal(t, "Hi", parsed.Subject)
		assert.Contains(t, parsed.Text, "hello")
		assert.Empty(t, parsed.HTML)
		assert.Empty(t, parsed.Attachments)
	})

	t.Run("解析multipart邮件与附件", func(t *testing.T) {
		parsed, err := ParseEmail([]byte(multipartMail))
		require.NoError(t, err)

		assert.Equal(t, "bob@example.com", parsed.Sender)
		assert.Contains(t, parsed.Text, "plain body")
		assert.Contains(t, parsed.HTML, "html body")
		require.Len(t, parsed.Attachments, 1)
		assert.Equal(t, "report.pdf", parsed.Attachments[0].Filename)
		assert.Equal(t, []byte("pdf-bytes"), parsed.Attachments[0].Content)
	})

	t.Run("头部顺序与重复头被保留", func(t *testing.T) {
		raw := "Received: from relay-a\r\n" +
			"From: bob@example.com\r\n" +
			"Received: from relay-b\r\n" +
			"Subject: ordered\r\n" +
			"\r\n" +
			"body\r\n"

		parsed, err := ParseEmail([]byte(raw))
		require.NoError(t, err)

		received := make([]string, 0)
		for _, h := range parsed.Headers {
			if h.Name == "Received" {
				received = append(received, strings.TrimSpace(h.Value))
			}
		}
		require.Len(t, received, 2)
		assert.Equal(t, "from relay-a", received[0])
		assert.Equal(t, "from relay-b", received[1])
		assert.Len(t, parsed.Headers, 4)
	})

	t.Run("附件文件名在解析时即被清理", func(t *testing.T) {
		raw := "From: bob@example.com\r\n" +
			"Subject: traversal\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: multipart/mixed; boundary=BOUNDARY\r\n" +
			"\r\n" +
			"--BOUNDARY\r\n" +
			"Content-Type: application/octet-stream\r\n" +
			"Content-Disposition: attachment; filename=\"../../etc/passwd\"\r\n" +
			"\r\n" +
			"data\r\n" +
			"--BOUNDARY--\r\n"

		parsed, err := ParseEmail([]byte(raw))
		require.NoError(t, err)
		require.Len(t, parsed.Attachments, 1)
		assert.Equal(t, "passwd", parsed.Attachments[0].Filename)
	})

	t.Run("解码RFC2047主题", func(t *testing.T) {
		raw := "From: bob@example.com\r\n" +
			"Subject: =?utf-8?B?5L2g5aW9?=\r\n" +
			"\r\n" +
			"body\r\n"

		parsed, err := ParseEmail([]byte(raw))
		require.NoError(t, err)
		assert.Equal(t, "你好", parsed.Subject)
	})

	t.Run("发件人缺少显示名时用地址", func(t *testing.T) {
		parsed, err := ParseEmail([]byte(multipartMail))
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", parsed.Sender)
	})

	t.Run("无法解析的载荷返回解析错误", func(t *testing.T) {
		raw := "this is not a header line\r\n" +
			"\r\n" +
			"body\r\n"

		_, err := ParseEmail([]byte(raw))
		assert.ErrorIs(t, err, domain.ErrParse)
	})

	t.Run("嵌套multipart正文可达", func(t *testing.T) {
		raw := "From: bob@example.com\r\n" +
			"Subject: nested\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: multipart/mixed; boundary=OUTER\r\n" +
			"\r\n" +
			"--OUTER\r\n" +
			"Content-Type: multipart/alternative; boundary=INNER\r\n" +
			"\r\n" +
			"--INNER\r\n" +
			"Content-Type: text/plain\r\n" +
			"\r\n" +
			"inner text\r\n" +
			"--INNER\r\n" +
			"Content-Type: text/html\r\n" +
			"\r\n" +
			"<b>inner html</b>\r\n" +
			"--INNER--\r\n" +
			"--OUTER--\r\n"

		parsed, err := ParseEmail([]byte(raw))
		require.NoError(t, err)
		assert.Contains(t, parsed.Text, "inner text")
		assert.Contains(t, parsed.HTML, "inner html")
	})
}

func TestSenderFromHeader(t *testing.T) {
	assert.Equal(t, "Bob Example", senderFromHeader("Bob Example <bob@example.com>"))
	assert.Equal(t, "bob@example.com", senderFromHeader("bob@example.com"))
	assert.Equal(t, "not an address at all", senderFromHeader("not an address at all"))
	assert.Equal(t, "", senderFromHeader(""))
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "alice@drop.mail", normalizeAddress(" <Alice@Drop.Mail> "))
}

func TestLocalPartOf(t *testing.T) {
	assert.Equal(t, "alice", localPartOf("<Alice@drop.mail>"))
	assert.Equal(t, "alice.smith", localPartOf("alice.smith@drop.mail"))
	// 无法规范化的前缀保留小写原值
	assert.Equal(t, "we ird", localPartOf("We Ird@drop.mail"))
	assert.Equal(t, "noat", localPartOf("noat"))
}
