package smtp

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/mail"
	"strings"

	gomessage "github.com/emersion/go-message"
	messagemail "github.com/emersion/go-message/mail"

	"dropmail/backend/internal/domain"
	"dropmail/backend/internal/storage/filesystem"
)

// ParsedEmail 是一次投递的结构化解析结果。
type ParsedEmail struct {
	Sender      string
	Subject     string
	Text        string
	HTML        string
	Headers     []domain.Header // 保留重复头与原始顺序
	Attachments []ParsedAttachment
}

// ParsedAttachment 是尚未落盘的原始附件。
type ParsedAttachment struct {
	Filename string // 发件方声明的文件名，已按落盘规则清理
	Content  []byte
}

// ParseEmail 将原始邮件字节解析为结构化消息。
// 无法解码为结构化消息时返回 domain.ErrParse，不返回部分结果。
func ParseEmail(raw []byte) (*ParsedEmail, error) {
	entity, err := gomessage.Read(bytes.NewReader(raw))
	if err != nil && !gomessage.IsUnknownCharset(err) {
		return nil, fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	parsed := &ParsedEmail{}

	// 头部按线上顺序整体保留，重复的头名不合并
	fields := entity.Header.Fields()
	for fields.Next() {
		parsed.Headers = append(parsed.Headers, domain.Header{
			Name:  fields.Key(),
			Value: fields.Value(),
		})
	}

	parsed.Subject = decodeHeader(entity.Header.Get("Subject"))
	parsed.Sender = senderFromHeader(entity.Header.Get("From"))

	if err := parseEntity(parsed, entity); err != nil {
		return nil, err
	}
	return parsed, nil
}

// parseEntity 解析单部分或多部分的消息体
func parseEntity(parsed *ParsedEmail, entity *gomessage.Entity) error {
	if mr := entity.MultipartReader(); mr != nil {
		return parseMultipart(parsed, mr)
	}
	return parseSinglePart(parsed, entity)
}

// parseMultipart 遍历 multipart 的各个部分，必要时递归进入嵌套 multipart
func parseMultipart(parsed *ParsedEmail, mr gomessage.MultipartReader) error {
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrParse, err)
		}

		ct, _, _ := part.Header.ContentType()
		disposition, _, _ := part.Header.ContentDisposition()

		switch {
		case disposition == "attachment":
			if err := collectAttachment(parsed, part, ct); err != nil {
				return err
			}

		case strings.HasPrefix(ct, "text/plain") && parsed.Text == "":
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrParse, err)
			}
			parsed.Text = string(body)

		case strings.HasPrefix(ct, "text/html") && parsed.HTML == "":
			body, err := io.ReadAll(part.Body)
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrParse, err)
			}
			parsed.HTML = string(body)

		case strings.HasPrefix(ct, "multipart/"):
			// 嵌套 multipart，递归解析
			if nested := part.MultipartReader(); nested != nil {
				if err := parseMultipart(parsed, nested); err != nil {
					return err
				}
			}

		default:
			if err := collectAttachment(parsed, part, ct); err != nil {
				return err
			}
		}
	}
}

// parseSinglePart 读取非 multipart 消息的正文
func parseSinglePart(parsed *ParsedEmail, entity *gomessage.Entity) error {
	ct, _, _ := entity.Header.ContentType()
	body, err := io.ReadAll(entity.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParse, err)
	}
	if strings.HasPrefix(ct, "text/html") {
		parsed.HTML = string(body)
	} else {
		parsed.Text = string(body)
	}
	return nil
}

// collectAttachment 读取一个附件部分
func collectAttachment(parsed *ParsedEmail, part *gomessage.Entity, contentType string) error {
	body, err := io.ReadAll(part.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrParse, err)
	}

	header := messagemail.AttachmentHeader{Header: part.Header}
	filename, _ := header.Filename()
	if filename == "" {
		// 没有声明文件名时按内容类型给一个占位名
		filename = "attachment"
		if strings.HasPrefix(contentType, "image/") {
			filename = "image"
		}
	}

	parsed.Attachments = append(parsed.Attachments, ParsedAttachment{
		// 发件方声明的文件名在离开解析层前先清理
		Filename: filesystem.SanitizeFilename(filename),
		Content:  body,
	})
	return nil
}

// senderFromHeader 提取发件人显示文本，解析失败时退回原始头值
func senderFromHeader(from string) string {
	decoded := decodeHeader(from)
	addr, err := mail.ParseAddress(decoded)
	if err != nil {
		return decoded
	}
	if addr.Name != "" {
		return addr.Name
	}
	return addr.Address
}

func decodeHeader(value string) string {
	if value == "" {
		return value
	}
	decoder := new(mime.WordDecoder)
	decoded, err := decoder.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}
