package inbound

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"go.uber.org/zap"

	"github.com/deskline/helpdesk-service/internal/config"
)

type imapClient interface {
	Login(username, password string) commandWaiter
	Logout() commandWaiter
	Close() error
	Select(mailbox string, options *imap.SelectOptions) selectWaiter
	UIDSearch(criteria *imap.SearchCriteria, options *imap.SearchOptions) searchWaiter
	Fetch(numSet imap.NumSet, options *imap.FetchOptions) fetchWaiter
	Store(numSet imap.NumSet, store *imap.StoreFlags, options *imap.StoreOptions) fetchWaiter
	UIDExpunge(uids imap.UIDSet) expungeWaiter
}

type commandWaiter interface{ Wait() error }
type selectWaiter interface {
	Wait() (*imap.SelectData, error)
}
type searchWaiter interface {
	Wait() (*imap.SearchData, error)
}
type fetchWaiter interface {
	Collect() ([]*imapclient.FetchMessageBuffer, error)
	Close() error
}
type expungeWaiter interface{ Close() error }

// BatchHandler receives the raw RFC 5322 bytes of one fetch, oldest first.
type BatchHandler func(ctx context.Context, raws [][]byte) error

// IMAPFetcher pulls unseen messages from one mailbox folder.
type IMAPFetcher struct {
	mailbox   config.MailboxConfig
	logger    *zap.Logger
	newClient func(config.MailboxConfig) (imapClient, error)
}

// IMAPFetcherOption customizes fetcher behavior.
type IMAPFetcherOption func(*IMAPFetcher)

// NewIMAPFetcher returns a fetcher bound to the configured mailbox.
func NewIMAPFetcher(mailbox config.MailboxConfig, logger *zap.Logger, opts ...IMAPFetcherOption) *IMAPFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &IMAPFetcher{mailbox: mailbox, logger: logger}
	f.newClient = f.defaultClientFactory
	for _, opt := range opts {
		opt(f)
	}
	if f.newClient == nil {
		f.newClient = f.defaultClientFactory
	}
	return f
}

func withIMAPClientFactory(factory func(config.MailboxConfig) (imapClient, error)) IMAPFetcherOption {
	return func(f *IMAPFetcher) {
		f.newClient = factory
	}
}

// Channel describes where fetched messages are filed.
func (f *IMAPFetcher) Channel() string {
	return fmt.Sprintf("imap://%s@%s/%s", f.mailbox.User, f.mailbox.Addr(), f.folder())
}

// Fetch hands unseen messages to handler as one batch. Messages are flagged
// seen, or deleted when configured, only after the handler succeeds.
func (f *IMAPFetcher) Fetch(ctx context.Context, handler BatchHandler) (int, error) {
	if handler == nil {
		return 0, errors.New("imap fetcher requires a handler")
	}
	if !f.mailbox.Configured() {
		return 0, errors.New("imap mailbox is not configured")
	}

	client, err := f.newClient(f.mailbox)
	if err != nil {
		return 0, fmt.Errorf("imap connect: %w", err)
	}
	defer f.safeClose(client)

	if err := client.Login(f.mailbox.User, f.mailbox.Password).Wait(); err != nil {
		return 0, fmt.Errorf("imap auth: %w", err)
	}

	folder := f.folder()
	if _, err := client.Select(folder, nil).Wait(); err != nil {
		return 0, fmt.Errorf("imap select %s: %w", folder, err)
	}

	criteria := &imap.SearchCriteria{NotFlag: []imap.Flag{imap.FlagSeen}}
	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return 0, fmt.Errorf("imap search: %w", err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return 0, f.logout(client)
	}
	sort.Slice(uids, func(i, j int) bool { return uids[i] < uids[j] })
	if f.mailbox.FetchLimit > 0 && len(uids) > f.mailbox.FetchLimit {
		uids = uids[:f.mailbox.FetchLimit]
	}

	uidSet := imap.UIDSetNum(uids...)
	section := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	}
	buffers, err := client.Fetch(uidSet, fetchOpts).Collect()
	if err != nil {
		return 0, fmt.Errorf("imap fetch: %w", err)
	}
	sort.Slice(buffers, func(i, j int) bool { return buffers[i].UID < buffers[j].UID })

	raws := make([][]byte, 0, len(buffers))
	for _, buf := range buffers {
		body := buf.FindBodySection(section)
		if body == nil {
			f.logger.Warn("imap message without body", zap.Uint32("uid", uint32(buf.UID)))
			continue
		}
		raws = append(raws, append([]byte(nil), body...))
	}

	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := handler(ctx, raws); err != nil {
		return 0, fmt.Errorf("imap batch handler: %w", err)
	}

	if f.mailbox.DeleteAfterFetch {
		store := &imap.StoreFlags{Op: imap.StoreFlagsAdd, Silent: true, Flags: []imap.Flag{imap.FlagDeleted}}
		if err := client.Store(uidSet, store, nil).Close(); err != nil {
			return len(raws), fmt.Errorf("imap store delete: %w", err)
		}
		if err := client.UIDExpunge(uidSet).Close(); err != nil {
			return len(raws), fmt.Errorf("imap expunge: %w", err)
		}
	} else {
		store := &imap.StoreFlags{Op: imap.StoreFlagsAdd, Silent: true, Flags: []imap.Flag{imap.FlagSeen}}
		if err := client.Store(uidSet, store, nil).Close(); err != nil {
			return len(raws), fmt.Errorf("imap store seen: %w", err)
		}
	}

	f.logger.Info("imap fetch complete",
		zap.String("folder", folder),
		zap.Int("messages", len(raws)),
		zap.Bool("deleted", f.mailbox.DeleteAfterFetch),
	)
	return len(raws), f.logout(client)
}

func (f *IMAPFetcher) folder() string {
	if f.mailbox.Folder == "" {
		return "INBOX"
	}
	return f.mailbox.Folder
}

func (f *IMAPFetcher) logout(client imapClient) error {
	if err := client.Logout().Wait(); err != nil {
		return fmt.Errorf("imap logout: %w", err)
	}
	return nil
}

func (f *IMAPFetcher) safeClose(client imapClient) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		f.logger.Debug("imap close error", zap.Error(err))
	}
}

func (f *IMAPFetcher) defaultClientFactory(mailbox config.MailboxConfig) (imapClient, error) {
	timeout := mailbox.DialTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	opts := &imapclient.Options{Dialer: &net.Dialer{Timeout: timeout}}
	var (
		client *imapclient.Client
		err    error
	)
	if mailbox.TLS {
		client, err = imapclient.DialTLS(mailbox.Addr(), opts)
	} else {
		client, err = imapclient.DialInsecure(mailbox.Addr(), opts)
	}
	if err != nil {
		return nil, err
	}
	return &imapClientWrapper{Client: client}, nil
}

type imapClientWrapper struct{ *imapclient.Client }

func (w *imapClientWrapper) Login(username, password string) commandWaiter {
	return w.Client.Login(username, password)
}
func (w *imapClientWrapper) Logout() commandWaiter { return w.Client.Logout() }
func (w *imapClientWrapper) Select(mailbox string, options *imap.SelectOptions) selectWaiter {
	return w.Client.Select(mailbox, options)
}
func (w *imapClientWrapper) UIDSearch(criteria *imap.SearchCriteria, options *imap.SearchOptions) searchWaiter {
	return w.Client.UIDSearch(criteria, options)
}
func (w *imapClientWrapper) Fetch(numSet imap.NumSet, options *imap.FetchOptions) fetchWaiter {
	return w.Client.Fetch(numSet, options)
}
func (w *imapClientWrapper) Store(numSet imap.NumSet, store *imap.StoreFlags, options *imap.StoreOptions) fetchWaiter {
	return w.Client.Store(numSet, store, options)
}
func (w *imapClientWrapper) UIDExpunge(uids imap.UIDSet) expungeWaiter {
	return w.Client.UIDExpunge(uids)
}
