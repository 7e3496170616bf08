package inbox

import (
	"bytes"
	"testing"
	"time"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inbox-triage/triage/internal/config"
)

func TestForwardMailboxUpdatesKeepsDraining(t *testing.T) {
	updates := make(chan client.Update)
	notify := make(chan struct{}, 1)
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		forwardMailboxUpdates(updates, notify, done)
		close(exited)
	}()

	// Unbuffered sends only complete while the forwarder keeps reading, even
	// with a notification already pending and nobody consuming it.
	for i := 0; i < 100; i++ {
		switch i % 3 {
		case 0:
			updates <- &client.StatusUpdate{Status: &imap.StatusResp{Type: imap.StatusRespOk}}
		case 1:
			updates <- &client.ExpungeUpdate{SeqNum: uint32(i)}
		default:
			updates <- &client.MailboxUpdate{Mailbox: &imap.MailboxStatus{Name: "INBOX"}}
		}
	}

	select {
	case <-notify:
	default:
		t.Fatal("expected a pending notification")
	}
	select {
	case <-notify:
		t.Fatal("mailbox updates should collapse into one notification")
	default:
	}

	close(done)
	select {
	case <-exited:
	case <-time.After(time.Second):
		t.Fatal("forwarder did not stop")
	}
}

func TestForwardMailboxUpdatesIgnoresOtherUpdates(t *testing.T) {
	updates := make(chan client.Update)
	notify := make(chan struct{}, 1)
	done := make(chan struct{})
	defer close(done)
	go forwardMailboxUpdates(updates, notify, done)

	updates <- &client.ExpungeUpdate{SeqNum: 4}
	updates <- &client.MessageUpdate{Message: imap.NewMessage(4, nil)}

	select {
	case <-notify:
		t.Fatal("only mailbox updates should notify")
	default:
	}
}

func TestNewMonitorTagsComponent(t *testing.T) {
	var buf bytes.Buffer
	m := NewMonitor(config.InboxConfig{}, zerolog.New(&buf))
	m.log.Info().Msg("hello")

	require.NotEmpty(t, buf.String())
	assert.Contains(t, buf.String(), `"component":"inbox"`)
}
