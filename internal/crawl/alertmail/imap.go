package alertmail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// Message is one alert email as fetched from the server.
type Message struct {
	UID     imap.UID
	From    string
	Subject string
	Date    time.Time
	Raw     []byte // full RFC822 bytes, fetched with BODY.PEEK[]
}

// Mailbox is the slice of IMAP the session needs.
type Mailbox interface {
	// Search returns UIDs newest first.
	Search(ctx context.Context, since time.Time) ([]imap.UID, error)
	Fetch(ctx context.Context, uids []imap.UID) ([]Message, error)
	Close() error
}

type imapMailbox struct {
	c *imapclient.Client
}

func tlsConfigFor(addr string) *tls.Config {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	return &tls.Config{MinVersion: tls.VersionTLS12, ServerName: host}
}

// DialIMAP connects over TLS, logs in and selects mailbox read-only.
func DialIMAP(ctx context.Context, addr, username, password, mailbox string) (Mailbox, error) {
	if addr == "" {
		return nil, errors.New("imap addr is required")
	}
	if username == "" || password == "" {
		return nil, errors.New("imap username/password is required")
	}

	c, err := imapclient.DialTLS(addr, &imapclient.Options{TLSConfig: tlsConfigFor(addr)})
	if err != nil {
		return nil, fmt.Errorf("imap dial tls: %w", err)
	}

	if err := c.Login(username, password).Wait(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("imap login: %w", err)
	}

	if mailbox == "" {
		mailbox = "INBOX"
	}
	if _, err := c.Select(mailbox, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("imap select %q: %w", mailbox, err)
	}
	return &imapMailbox{c: c}, nil
}

func (m *imapMailbox) Search(ctx context.Context, since time.Time) ([]imap.UID, error) {
	criteria := &imap.SearchCriteria{Since: since}
	data, err := m.c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("imap uid search: %w", err)
	}
	uids := data.AllUIDs()
	slices.Reverse(uids)
	return uids, nil
}

func (m *imapMailbox) Fetch(ctx context.Context, uids []imap.UID) ([]Message, error) {
	if len(uids) == 0 {
		return nil, nil
	}

	bodyAll := &imap.FetchItemBodySection{Specifier: imap.PartSpecifierNone, Peek: true}
	cmd := m.c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = cmd.Close() }()

	byUID := make(map[imap.UID]Message, len(uids))
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		msg := cmd.Next()
		if msg == nil {
			break
		}
		buf, err := msg.Collect()
		if err != nil {
			return nil, fmt.Errorf("imap fetch collect: %w", err)
		}

		em := Message{UID: buf.UID}
		if buf.Envelope != nil {
			em.Subject = buf.Envelope.Subject
			em.Date = buf.Envelope.Date
			em.From = joinAddrs(buf.Envelope.From)
		}
		if b := buf.FindBodySection(bodyAll); b != nil {
			em.Raw = append([]byte(nil), b...)
		}
		byUID[em.UID] = em
	}
	if err := cmd.Close(); err != nil {
		return nil, fmt.Errorf("imap fetch close: %w", err)
	}

	// servers answer in mailbox order; keep the caller's order
	out := make([]Message, 0, len(byUID))
	for _, uid := range uids {
		if em, ok := byUID[uid]; ok {
			out = append(out, em)
		}
	}
	return out, nil
}

func (m *imapMailbox) Close() error {
	if err := m.c.Logout().Wait(); err != nil {
		_ = m.c.Close()
		return err
	}
	return m.c.Close()
}

func joinAddrs(addrs []imap.Address) string {
	parts := make([]string, 0, len(addrs))
	for i := range addrs {
		a := &addrs[i]
		addr := strings.TrimSpace(a.Addr())
		if addr == "" {
			addr = strings.TrimSpace(a.Name)
		}
		if addr != "" {
			parts = append(parts, addr)
		}
	}
	return strings.Join(parts, ", ")
}
