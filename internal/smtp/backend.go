package smtp

import (
	"io"
	"strings"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"dropmail/backend/internal/domain"
	"dropmail/backend/internal/monitoring"
	"dropmail/backend/internal/service"
	"dropmail/backend/internal/storage/filesystem"
)

// Backend 实现 go-smtp 的 Backend 接口。
//
// 这是一个只接收邮件的 SMTP 服务器：
// - 任何发件人、任何收件人都被接受，不做存在性校验
// - 投递按阶段推进：接收 → 解析 → 附件落盘 → 记录落库
// - 任何阶段失败都在协议层拒绝本次投递，且不留下部分持久化结果
//
// 发往未注册前缀的邮件照常存储。这类邮件没有任何凭证可以匹配，
// 永远不会被读出，最终由清理任务回收。
type Backend struct {
	messages *service.MessageService
	files    *filesystem.Store
	limiter  *DeliveryLimiter
	metrics  *monitoring.Metrics
	log      *zap.Logger
	maxBytes int64
}

// NewBackend 创建 SMTP Backend。metrics 可以为 nil。
func NewBackend(
	messages *service.MessageService,
	files *filesystem.Store,
	limiter *DeliveryLimiter,
	metrics *monitoring.Metrics,
	log *zap.Logger,
	maxBytes int64,
) *Backend {
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Backend{
		messages: messages,
		files:    files,
		limiter:  limiter,
		metrics:  metrics,
		log:      log,
		maxBytes: maxBytes,
	}
}

// NewSession 创建新的 SMTP 会话。
func (b *Backend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	return &session{backend: b}, nil
}

type session struct {
	backend     *Backend
	fromAddress string
	localPart   string // 第一个收件人的前缀，后续收件人被接受但忽略
}

// Mail 处理 MAIL 命令，任何发件人都被接受。
func (s *session) Mail(from string, opts *gosmtp.MailOptions) error {
	s.fromAddress = normalizeAddress(from)
	return nil
}

// Rcpt 处理 RCPT 命令，任何收件人都被接受。
// 只有第一个收件人决定目标邮箱，其余收件人不再改变投递去向。
func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	if s.localPart != "" {
		return nil
	}
	s.localPart = localPartOf(to)
	return nil
}

// Data 处理邮件内容，驱动整条投递管线。
func (s *session) Data(r io.Reader) error {
	if s.backend.limiter != nil && !s.backend.limiter.Allow() {
		s.reject("ratelimited")
		return &gosmtp.SMTPError{
			Code:         451,
			EnhancedCode: gosmtp.EnhancedCode{4, 7, 0},
			Message:      "too many deliveries, try again later",
		}
	}

	rawBytes, err := io.ReadAll(io.LimitReader(r, s.backend.maxBytes))
	if err != nil {
		s.reject("read")
		return &gosmtp.SMTPError{
			Code:         451,
			EnhancedCode: gosmtp.EnhancedCode{4, 3, 0},
			Message:      "failed to read message data",
		}
	}

	// 阶段一：解析
	parsed, err := ParseEmail(rawBytes)
	if err != nil {
		s.backend.log.Warn("delivery rejected: parse failed",
			zap.String("from", s.fromAddress),
			zap.String("local_part", s.localPart),
			zap.Error(err),
		)
		s.reject("parse")
		return &gosmtp.SMTPError{
			Code:         554,
			EnhancedCode: gosmtp.EnhancedCode{5, 6, 0},
			Message:      "message could not be parsed",
		}
	}

	// 阶段二：附件落盘
	refs := make([]*domain.AttachmentRef, 0, len(parsed.Attachments))
	for _, att := range parsed.Attachments {
		ref, err := s.backend.files.Save(att.Filename, att.Content)
		if err != nil {
			s.backend.log.Error("delivery rejected: attachment store failed",
				zap.String("local_part", s.localPart),
				zap.Error(err),
			)
			s.cleanupAttachments(refs)
			s.reject("storage")
			return storageError()
		}
		refs = append(refs, ref)
	}

	// 阶段三：记录落库
	sender := parsed.Sender
	if sender == "" {
		sender = s.fromAddress
	}
	message := &domain.Message{
		LocalPart:   s.localPart,
		Sender:      sender,
		Subject:     parsed.Subject,
		Text:        parsed.Text,
		HTML:        parsed.HTML,
		Headers:     parsed.Headers,
		Attachments: refs,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.backend.messages.Deliver(message); err != nil {
		s.backend.log.Error("delivery rejected: message store failed",
			zap.String("local_part", s.localPart),
			zap.Error(err),
		)
		s.cleanupAttachments(refs)
		s.reject("storage")
		return storageError()
	}

	if s.backend.metrics != nil {
		s.backend.metrics.MessagesReceived.Inc()
		for _, ref := range refs {
			s.backend.metrics.AttachmentBytes.Add(float64(ref.Size))
		}
	}
	return nil
}

// AuthPlain 处理 PLAIN 认证（此处允许匿名）。
func (s *session) AuthPlain(username, password string) error {
	return nil
}

// Reset 重置状态。
func (s *session) Reset() {
	s.fromAddress = ""
	s.localPart = ""
}

// Logout 会话结束。
func (s *session) Logout() error {
	return nil
}

// cleanupAttachments 回收本次投递已写盘的附件，保证失败的投递不留痕迹。
// 删除是幂等的，失败只记日志。
func (s *session) cleanupAttachments(refs []*domain.AttachmentRef) {
	for _, ref := range refs {
		if err := s.backend.files.Delete(ref.StoredName); err != nil {
			s.backend.log.Warn("failed to clean up attachment after rejected delivery",
				zap.String("stored_name", ref.StoredName),
				zap.Error(err),
			)
		}
	}
}

func (s *session) reject(reason string) {
	if s.backend.metrics != nil {
		s.backend.metrics.MessagesRejected.WithLabelValues(reason).Inc()
	}
}

func storageError() error {
	return &gosmtp.SMTPError{
		Code:         451,
		EnhancedCode: gosmtp.EnhancedCode{4, 3, 0},
		Message:      "temporary storage failure, try again later",
	}
}

// localPartOf 提取收件地址的前缀部分并尽量规范化。
// 规范化失败时保留小写原值，这类邮件仍被接收，只是永远无法被读取。
func localPartOf(addr string) string {
	addr = normalizeAddress(addr)
	local := addr
	if at := strings.Index(addr, "@"); at >= 0 {
		local = addr[:at]
	}
	if normalized, err := domain.NormalizeLocalPart(local); err == nil {
		return normalized
	}
	return local
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.Trim(addr, "<>")
	return strings.ToLower(addr)
}
