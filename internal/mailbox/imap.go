package mailbox

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"sort"
	"strconv"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"github.com/pfrederiksen/actionfeed/internal/logger"
)

const (
	DefaultFolder  = "INBOX"
	DefaultPort    = 993
	commandTimeout = time.Minute
)

// Search filters understood by IMAPConfig.Search.
const (
	SearchUnseen = "unseen"
	SearchAll    = "all"
)

// IMAPConfig describes an IMAP folder.
type IMAPConfig struct {
	Host     string
	Port     int
	Folder   string
	Username string
	Password string
	// Search selects which messages Unseen returns: SearchUnseen (default)
	// or SearchAll.
	Search string
	// MaxMessages caps the messages returned per call; 0 means no cap.
	MaxMessages int
	// Insecure connects without TLS. Only for local test servers.
	Insecure  bool
	TLSConfig *tls.Config
}

// IMAPMailbox reads a folder over IMAP. Each call opens its own session.
type IMAPMailbox struct {
	cfg IMAPConfig
}

// NewIMAP creates an IMAP mailbox, filling in defaults.
func NewIMAP(cfg IMAPConfig) (*IMAPMailbox, error) {
	if cfg.Host == "" {
		return nil, errors.New("imap host is required")
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Folder == "" {
		cfg.Folder = DefaultFolder
	}
	switch cfg.Search {
	case "":
		cfg.Search = SearchUnseen
	case SearchUnseen, SearchAll:
	default:
		return nil, fmt.Errorf("unknown imap search filter %q", cfg.Search)
	}
	return &IMAPMailbox{cfg: cfg}, nil
}

func (m *IMAPMailbox) Locator() string {
	return fmt.Sprintf("imap://%s/%s", m.address(), m.cfg.Folder)
}

func (m *IMAPMailbox) address() string {
	return net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
}

func (m *IMAPMailbox) session(ctx context.Context) (*client.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		c   *client.Client
		err error
	)
	if m.cfg.Insecure {
		c, err = client.Dial(m.address())
	} else {
		tlsConfig := m.cfg.TLSConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{ServerName: m.cfg.Host}
		}
		c, err = client.DialTLS(m.address(), tlsConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", m.address(), err)
	}
	c.Timeout = commandTimeout

	if err := c.Login(m.cfg.Username, m.cfg.Password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("logging in as %s: %w", m.cfg.Username, err)
	}
	if _, err := c.Select(m.cfg.Folder, false); err != nil {
		c.Logout()
		return nil, fmt.Errorf("selecting %s: %w", m.cfg.Folder, err)
	}
	return c, nil
}

// Unseen returns the messages matching the search filter in UID order. The
// messages are fetched with BODY.PEEK so reading them does not set \Seen.
func (m *IMAPMailbox) Unseen(ctx context.Context) ([]Message, error) {
	c, err := m.session(ctx)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	criteria := imap.NewSearchCriteria()
	if m.cfg.Search == SearchUnseen {
		criteria.WithoutFlags = []string{imap.SeenFlag}
	}
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", m.cfg.Folder, err)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	if m.cfg.MaxMessages > 0 && len(uids) > m.cfg.MaxMessages {
		uids = uids[:m.cfg.MaxMessages]
	}
	if len(uids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchUid, section.FetchItem()}

	fetched := make(chan *imap.Message, 16)
	done := make(chan error, 1)
	go func() {
		done <- c.UidFetch(seqset, items, fetched)
	}()

	var messages []Message
	for msg := range fetched {
		body := msg.GetBody(section)
		if body == nil {
			logger.Warn("Message without body", logger.Fields{"uid": msg.Uid})
			continue
		}
		raw, err := io.ReadAll(body)
		if err != nil {
			logger.Warn("Reading message failed", logger.Fields{"uid": msg.Uid, "error": err.Error()})
			continue
		}
		messages = append(messages, Message{UID: msg.Uid, Raw: raw})
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("fetching messages: %w", err)
	}

	sort.Slice(messages, func(i, j int) bool { return messages[i].UID < messages[j].UID })
	return messages, nil
}

// MarkSeen sets \Seen on the given messages.
func (m *IMAPMailbox) MarkSeen(ctx context.Context, uids []uint32) error {
	if len(uids) == 0 {
		return nil
	}
	c, err := m.session(ctx)
	if err != nil {
		return err
	}
	defer c.Logout()

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)
	item := imap.FormatFlagsOp(imap.AddFlags, true)
	if err := c.UidStore(seqset, item, []interface{}{imap.SeenFlag}, nil); err != nil {
		return fmt.Errorf("storing \\Seen: %w", err)
	}
	return nil
}
