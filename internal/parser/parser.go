package parser

import (
	"encoding/base64"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/mrinal140420/phishing-email-sentinel/internal/core"
	"go.uber.org/zap"
)

// Parser turns raw RFC-822 text into a core.ParsedEmail. It never
// fails: structural problems surface as ParsedEmail.ParseError and the
// remaining fields stay zero-valued.
type Parser struct {
	logger *zap.Logger
}

// New creates a new email parser
func New(logger *zap.Logger) *Parser {
	return &Parser{logger: logger}
}

// Parse parses one raw message. The input may carry any transfer
// encoding and need not be valid UTF-8; undecodable bytes are replaced
// rather than rejected.
func (p *Parser) Parse(raw string) *core.ParsedEmail {
	raw = strings.ToValidUTF8(raw, "�")

	msg, err := mail.ReadMessage(strings.NewReader(raw))
	if err != nil {
		p.logger.Debug("Failed to parse email", zap.Error(err))
		return &core.ParsedEmail{
			ParseError: &core.ErrorInfo{
				Type:    core.ErrTypeParsing,
				Message: fmt.Sprintf("failed to parse email: %v", err),
			},
		}
	}

	headers := core.Headers{
		From:    decodeHeader(msg.Header.Get("From")),
		ReplyTo: decodeHeader(msg.Header.Get("Reply-To")),
		Subject: decodeHeader(msg.Header.Get("Subject")),
	}
	for _, received := range msg.Header["Received"] {
		headers.Received = append(headers.Received, decodeHeader(received))
	}

	body := p.extractBody(msg)
	urls := ExtractURLs(body.PlainText, body.HTML)

	return &core.ParsedEmail{
		ID:      uuid.New().String(),
		Headers: headers,
		Body:    body,
		URLs:    urls,
	}
}

// wordDecoder decodes MIME encoded-words leniently: unknown charsets
// pass their bytes through instead of failing the whole header.
var wordDecoder = &mime.WordDecoder{
	CharsetReader: func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	},
}

// decodeHeader decodes every encoded-word segment of a header value
// with its declared encoding and concatenates the results in original
// order. Undecodable values fall back to the raw header text.
func decodeHeader(value string) string {
	if value == "" {
		return ""
	}
	decoded, err := wordDecoder.DecodeHeader(value)
	if err != nil {
		return strings.ToValidUTF8(value, "�")
	}
	return strings.ToValidUTF8(decoded, "�")
}

// extractBody classifies the message payload into plain text and HTML
// variants. Multipart messages are walked depth-first; the first part
// of each type wins and later duplicates are ignored.
func (p *Parser) extractBody(msg *mail.Message) core.BodyContent {
	payload, err := io.ReadAll(msg.Body)
	if err != nil {
		// Keep whatever was read before the failure
		p.logger.Debug("Failed to read full message body", zap.Error(err))
	}

	contentType := msg.Header.Get("Content-Type")
	mediaType, params, ctErr := mime.ParseMediaType(contentType)
	if ctErr != nil {
		mediaType = "text/plain"
	}

	var body core.BodyContent
	if strings.HasPrefix(mediaType, "multipart/") {
		boundary := params["boundary"]
		if boundary != "" {
			p.walkMultipart(strings.NewReader(string(payload)), boundary, &body)
			return body
		}
		// Declared multipart without a boundary, treat as plain text
	}

	text := decodeTransfer(payload, msg.Header.Get("Content-Transfer-Encoding"))
	switch mediaType {
	case "text/html":
		body.HTML = text
	default:
		// Unrecognized content types fall back to plain text
		body.PlainText = text
	}
	return body
}

// walkMultipart reads every part of a multipart body, recursing into
// nested multiparts, filling in the first text/plain and text/html
// parts encountered. It stops early once both slots are filled.
func (p *Parser) walkMultipart(r io.Reader, boundary string, body *core.BodyContent) {
	mr := multipart.NewReader(r, boundary)
	for {
		if body.PlainText != "" && body.HTML != "" {
			return
		}
		part, err := mr.NextPart()
		if err != nil {
			// io.EOF or a malformed part; keep what was collected
			return
		}
		partType, partParams, err := mime.ParseMediaType(part.Header.Get("Content-Type"))
		if err != nil {
			partType = "text/plain"
		}

		if strings.HasPrefix(partType, "multipart/") {
			if nested := partParams["boundary"]; nested != "" {
				p.walkMultipart(part, nested, body)
			}
			continue
		}

		switch partType {
		case "text/plain":
			if body.PlainText == "" {
				data, _ := io.ReadAll(part)
				body.PlainText = decodeTransfer(data, part.Header.Get("Content-Transfer-Encoding"))
			}
		case "text/html":
			if body.HTML == "" {
				data, _ := io.ReadAll(part)
				body.HTML = decodeTransfer(data, part.Header.Get("Content-Transfer-Encoding"))
			}
		}
	}
}

// decodeTransfer undoes a Content-Transfer-Encoding leniently, keeping
// whatever decoded cleanly when the data is malformed.
func decodeTransfer(data []byte, encoding string) string {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		cleaned := strings.Map(func(r rune) rune {
			switch r {
			case ' ', '\t', '\r', '\n':
				return -1
			}
			return r
		}, string(data))
		decoded, err := base64.StdEncoding.DecodeString(cleaned)
		if err != nil {
			decoded, _ = base64.StdEncoding.WithPadding(base64.NoPadding).DecodeString(strings.TrimRight(cleaned, "="))
		}
		if len(decoded) > 0 {
			return strings.ToValidUTF8(string(decoded), "�")
		}
		return strings.ToValidUTF8(string(data), "�")
	case "quoted-printable":
		decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(string(data))))
		if err != nil && len(decoded) == 0 {
			return strings.ToValidUTF8(string(data), "�")
		}
		return strings.ToValidUTF8(string(decoded), "�")
	default:
		return strings.ToValidUTF8(string(data), "�")
	}
}
