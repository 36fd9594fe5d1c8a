package mailbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/pfrederiksen/actionfeed/internal/scraper"
)

// Meta keys set on pages produced by Fetcher.
const (
	MetaSubject   = "subject"
	MetaFrom      = "from"
	MetaDate      = "date"
	MetaMessageID = "message-id"
)

// Fetcher turns the raw message carried by a reference into a page. The HTML
// part is preferred; a plain text body is wrapped in a pre element.
type Fetcher struct{}

func (Fetcher) Fetch(_ context.Context, ref scraper.Reference) (*scraper.Page, error) {
	if len(ref.Raw) == 0 {
		return nil, scraper.Permanent(ref, errors.New("reference carries no message"))
	}

	mr, err := mail.CreateReader(bytes.NewReader(ref.Raw))
	if err != nil && !message.IsUnknownCharset(err) {
		return nil, scraper.Permanent(ref, fmt.Errorf("parsing message: %w", err))
	}
	defer mr.Close()

	meta := headerMeta(mr.Header)

	var htmlBody, textBody string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			return nil, scraper.Permanent(ref, fmt.Errorf("reading message part: %w", err))
		}
		if part == nil {
			break
		}
		h, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		ct, _, _ := h.ContentType()
		body, err := io.ReadAll(part.Body)
		if err != nil {
			return nil, scraper.Permanent(ref, fmt.Errorf("reading message body: %w", err))
		}
		switch {
		case ct == "text/html" && htmlBody == "":
			htmlBody = string(body)
		case (ct == "text/plain" || ct == "") && textBody == "":
			textBody = string(body)
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(bodyHTML(htmlBody, textBody)))
	if err != nil {
		return nil, scraper.Permanent(ref, fmt.Errorf("parsing body: %w", err))
	}
	return &scraper.Page{Ref: ref, URL: ref.ID, Doc: doc, Meta: meta}, nil
}

func bodyHTML(htmlBody, textBody string) string {
	if htmlBody != "" {
		return htmlBody
	}
	return "<html><body><pre>" + html.EscapeString(textBody) + "</pre></body></html>"
}

func headerMeta(h mail.Header) map[string]string {
	meta := make(map[string]string, 4)

	meta[MetaSubject] = headerText(h, "Subject")

	if from, err := h.AddressList("From"); err == nil && len(from) > 0 {
		names := make([]string, len(from))
		for i, a := range from {
			names[i] = a.Name
			if names[i] == "" {
				names[i] = a.Address
			}
		}
		meta[MetaFrom] = strings.Join(names, ", ")
	} else {
		meta[MetaFrom] = headerText(h, "From")
	}

	if date, err := h.Date(); err == nil && !date.IsZero() {
		meta[MetaDate] = date.Format(time.RFC1123Z)
	} else {
		meta[MetaDate] = h.Get("Date")
	}

	if id, err := h.MessageID(); err == nil {
		meta[MetaMessageID] = id
	}
	return meta
}

// headerText decodes encoded words in any charset go-message knows, falling
// back to the raw value.
func headerText(h mail.Header, key string) string {
	if v, err := h.Text(key); err == nil {
		return v
	}
	return h.Get(key)
}
