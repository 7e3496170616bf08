package inbox

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// Email represents a parsed email message
type Email struct {
	UID        uint32 // IMAP UID for operations like move
	MessageID  string
	From       string
	FromName   string
	Subject    string
	Body       string
	HTMLBody   string
	ReceivedAt time.Time
}

// Text returns the text to analyze: the plain-text body, or the HTML body
// converted to text when there is no plain-text part
func (e *Email) Text() string {
	if strings.TrimSpace(e.Body) != "" {
		return e.Body
	}
	if e.HTMLBody != "" {
		return HTMLToText(e.HTMLBody)
	}
	return ""
}

// Source names the message in logs and output
func (e *Email) Source() string {
	switch {
	case e.MessageID != "":
		return e.MessageID
	case e.UID != 0:
		return fmt.Sprintf("uid:%d", e.UID)
	default:
		return e.Subject
	}
}

// ParseMessage reads an RFC 5322 message (an .eml file or an IMAP body
// section) and keeps its headers and first text/plain and text/html parts.
// Attachments are skipped.
func ParseMessage(r io.Reader) (*Email, error) {
	mr, err := mail.CreateReader(r)
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, fmt.Errorf("failed to read message: %w", err)
	}

	email := &Email{}
	h := mr.Header
	email.Subject, _ = h.Subject()
	email.MessageID, _ = h.MessageID()
	email.ReceivedAt, _ = h.Date()
	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		email.From = from[0].Address
		email.FromName = from[0].Name
	}

	// Process each part
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			if message.IsUnknownCharset(err) {
				continue
			}
			return email, fmt.Errorf("failed to read message part: %w", err)
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			if ct != "text/plain" && ct != "text/html" {
				continue
			}
			body, err := io.ReadAll(p.Body)
			if err != nil {
				return email, fmt.Errorf("failed to read %s part: %w", ct, err)
			}

			if ct == "text/plain" && email.Body == "" {
				email.Body = string(body)
			} else if ct == "text/html" && email.HTMLBody == "" {
				email.HTMLBody = string(body)
			}
		}
	}

	return email, nil
}

const blockSelector = "br, p, div, li, tr, h1, h2, h3, h4, h5, h6, blockquote"

var tagRE = regexp.MustCompile(`<[^>]+>`)

// HTMLToText converts an HTML body to plain text, one line per block
// element, so greeting and sign-off lines survive as separate lines
func HTMLToText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		// Fallback to stripping tags
		return tidyLines(tagRE.ReplaceAllString(html, "\n"))
	}

	doc.Find("script, style, head").Remove()
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.AfterHtml("\n")
	})

	return tidyLines(doc.Text())
}

// tidyLines trims every line, collapses inner whitespace and drops blank lines
func tidyLines(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
