package inbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/rs/zerolog"

	"github.com/inbox-triage/triage/internal/config"
	"github.com/inbox-triage/triage/internal/logger"
)

var errNotConnected = errors.New("not connected to IMAP server")

const fetchBatchSize = 50

// Monitor reads messages from an IMAP mailbox
type Monitor struct {
	config config.InboxConfig
	client *client.Client
	log    zerolog.Logger
}

// NewMonitor creates a new inbox monitor
func NewMonitor(cfg config.InboxConfig, log zerolog.Logger) *Monitor {
	return &Monitor{
		config: cfg,
		log:    logger.Component(log, "inbox"),
	}
}

// Connect establishes IMAP connection
func (m *Monitor) Connect(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", m.config.Server, m.config.Port)

	m.log.Info().Str("addr", addr).Msg("connecting to IMAP server")

	c, err := client.DialTLS(addr, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(m.config.Email, m.config.Password); err != nil {
		c.Logout()
		return fmt.Errorf("failed to login: %w", err)
	}

	m.client = c
	m.log.Info().Str("user", m.config.Email).Msg("login successful")
	return nil
}

// Disconnect closes the IMAP connection
func (m *Monitor) Disconnect() error {
	if m.client != nil {
		err := m.client.Logout()
		m.client = nil
		return err
	}
	return nil
}

// FetchRecentEmails fetches emails from the last N days without marking
// them as read
func (m *Monitor) FetchRecentEmails(ctx context.Context, days int) ([]Email, error) {
	if m.client == nil {
		return nil, errNotConnected
	}

	// Select the mailbox (usually INBOX)
	mbox, err := m.client.Select(m.config.Folder, false)
	if err != nil {
		return nil, fmt.Errorf("failed to select mailbox %s: %w", m.config.Folder, err)
	}

	m.log.Debug().Str("folder", m.config.Folder).Uint32("messages", mbox.Messages).Msg("mailbox selected")

	if mbox.Messages == 0 {
		return nil, nil
	}

	since := time.Now().AddDate(0, 0, -days)
	criteria := imap.NewSearchCriteria()
	criteria.Since = since

	uids, err := m.client.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search emails: %w", err)
	}

	m.log.Info().Int("count", len(uids)).Str("since", since.Format("2006-01-02")).Msg("found emails")

	var emails []Email
	for i := 0; i < len(uids); i += fetchBatchSize {
		if err := ctx.Err(); err != nil {
			return emails, err
		}

		end := min(i+fetchBatchSize, len(uids))
		batch, err := m.fetchUIDs(uids[i:end])
		if err != nil {
			return emails, err
		}
		emails = append(emails, batch...)
	}

	return emails, nil
}

// fetchUIDs fetches and parses one batch of messages
func (m *Monitor) fetchUIDs(uids []uint32) ([]Email, error) {
	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid, section.FetchItem()}

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- m.client.UidFetch(seqSet, items, messages)
	}()

	var emails []Email
	for msg := range messages {
		email, err := m.parseMessage(msg, section)
		if err != nil {
			m.log.Warn().Err(err).Uint32("uid", msg.Uid).Msg("failed to parse message")
			continue
		}
		if email != nil {
			emails = append(emails, *email)
		}
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return emails, nil
}

// parseMessage converts an IMAP message to our Email struct
func (m *Monitor) parseMessage(msg *imap.Message, section *imap.BodySectionName) (*Email, error) {
	if msg == nil || msg.Envelope == nil {
		return nil, nil
	}

	email := &Email{}
	if r := msg.GetBody(section); r != nil {
		parsed, err := ParseMessage(r)
		if err != nil && parsed == nil {
			return nil, err
		}
		email = parsed
	}

	// The envelope is authoritative for headers
	email.UID = msg.Uid
	email.Subject = msg.Envelope.Subject
	email.ReceivedAt = msg.Envelope.Date
	if msg.Envelope.MessageId != "" {
		email.MessageID = msg.Envelope.MessageId
	}
	if len(msg.Envelope.From) > 0 {
		from := msg.Envelope.From[0]
		email.From = from.Address()
		email.FromName = from.PersonalName
	}

	return email, nil
}

// WatchForNewEmails waits for new mail with IDLE and calls callback once for
// every message that arrives. It blocks until ctx is done.
func (m *Monitor) WatchForNewEmails(ctx context.Context, callback func(Email)) error {
	if m.client == nil {
		return errNotConnected
	}

	mbox, err := m.client.Select(m.config.Folder, false)
	if err != nil {
		return fmt.Errorf("failed to select mailbox: %w", err)
	}

	// Only messages arriving from now on are new
	nextUID := mbox.UidNext

	// The client blocks on a full Updates channel, so it is drained for the
	// whole watch, including while messages are fetched and moved.
	updates := make(chan client.Update, 10)
	notify := make(chan struct{}, 1)
	drained := make(chan struct{})
	m.client.Updates = updates
	go forwardMailboxUpdates(updates, notify, drained)
	defer func() {
		close(drained)
		m.client.Updates = nil
	}()

	stop := make(chan struct{})
	idleDone := make(chan error, 1)
	go func() {
		idleDone <- m.client.Idle(stop, nil)
	}()

	m.log.Info().Str("folder", m.config.Folder).Msg("watching for new emails (press Ctrl+C to stop)")

	for {
		select {
		case <-ctx.Done():
			close(stop)
			<-idleDone
			return ctx.Err()
		case <-notify:
			close(stop)
			<-idleDone

			emails, next, err := m.fetchSince(nextUID)
			if err != nil {
				m.log.Error().Err(err).Msg("error fetching new email")
			} else {
				nextUID = next
				for _, email := range emails {
					callback(email)
				}
			}

			// Restart IDLE
			stop = make(chan struct{})
			go func() {
				idleDone <- m.client.Idle(stop, nil)
			}()
		case err := <-idleDone:
			if err != nil {
				return fmt.Errorf("IDLE error: %w", err)
			}
			return nil
		}
	}
}

// forwardMailboxUpdates reads updates until done is closed. Mailbox updates
// collapse into at most one pending notification; every other update is
// discarded.
func forwardMailboxUpdates(updates <-chan client.Update, notify chan<- struct{}, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case update := <-updates:
			if _, ok := update.(*client.MailboxUpdate); !ok {
				continue
			}
			select {
			case notify <- struct{}{}:
			default:
			}
		}
	}
}

// fetchSince fetches messages with a UID of at least from and returns the
// next UID to watch for
func (m *Monitor) fetchSince(from uint32) ([]Email, uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Uid = new(imap.SeqSet)
	criteria.Uid.AddRange(from, 0)

	uids, err := m.client.UidSearch(criteria)
	if err != nil {
		return nil, from, fmt.Errorf("failed to search new emails: %w", err)
	}

	// "from:*" always matches the newest message, even when it is older
	var fresh []uint32
	next := from
	for _, uid := range uids {
		if uid >= from {
			fresh = append(fresh, uid)
			next = max(next, uid+1)
		}
	}
	if len(fresh) == 0 {
		return nil, next, nil
	}

	emails, err := m.fetchUIDs(fresh)
	return emails, next, err
}

// EnsureFolderExists creates a folder/label if it doesn't already exist
func (m *Monitor) EnsureFolderExists(name string) error {
	if m.client == nil {
		return errNotConnected
	}

	mailboxes := make(chan *imap.MailboxInfo, 10)
	done := make(chan error, 1)
	go func() {
		done <- m.client.List("", "*", mailboxes)
	}()

	exists := false
	for mbox := range mailboxes {
		if strings.EqualFold(mbox.Name, name) {
			exists = true
		}
	}

	if err := <-done; err != nil {
		return fmt.Errorf("failed to list folders: %w", err)
	}

	if exists {
		return nil
	}

	if err := m.client.Create(name); err != nil {
		return fmt.Errorf("failed to create folder '%s': %w", name, err)
	}

	m.log.Info().Str("folder", name).Msg("created folder")
	return nil
}

// MoveToFolder moves a single email to the specified folder by UID
func (m *Monitor) MoveToFolder(uid uint32, folder string) error {
	if m.client == nil {
		return errNotConnected
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uid)

	// Try MOVE first (RFC 6851)
	if err := m.client.UidMove(seqSet, folder); err != nil {
		m.log.Debug().Err(err).Msg("MOVE not supported, falling back to COPY+DELETE")

		if err := m.client.UidCopy(seqSet, folder); err != nil {
			return fmt.Errorf("failed to copy email to '%s': %w", folder, err)
		}

		item := imap.FormatFlagsOp(imap.AddFlags, true)
		flags := []interface{}{imap.DeletedFlag}
		if err := m.client.UidStore(seqSet, item, flags, nil); err != nil {
			return fmt.Errorf("failed to mark email as deleted: %w", err)
		}

		if err := m.client.Expunge(nil); err != nil {
			return fmt.Errorf("failed to expunge deleted email: %w", err)
		}
	}

	return nil
}
