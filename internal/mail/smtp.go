package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/deskline/helpdesk-service/internal/config"
)

// Transport delivers a rendered message.
type Transport interface {
	Send(ctx context.Context, from string, recipients []string, raw []byte) error
}

// Route is the outbound path for one ticket kind.
type Route struct {
	Transport Transport
	From      string
}

// Router picks the route for a ticket kind.
type Router interface {
	Route(kind string) (Route, bool)
}

// SMTPTransport sends through one SMTP server.
type SMTPTransport struct {
	server      config.SMTPServer
	dialTimeout time.Duration
}

// NewSMTPTransport builds a transport for server.
func NewSMTPTransport(server config.SMTPServer) *SMTPTransport {
	return &SMTPTransport{server: server, dialTimeout: 30 * time.Second}
}

func (s *SMTPTransport) Send(ctx context.Context, from string, recipients []string, raw []byte) error {
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients specified")
	}

	client, err := s.dial(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := s.authenticate(client); err != nil {
		return err
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	for _, to := range recipients {
		if err := client.Rcpt(to); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", to, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to initiate data transfer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close data transfer: %w", err)
	}
	if err := client.Quit(); err != nil {
		return fmt.Errorf("failed to quit SMTP session: %w", err)
	}
	return nil
}

func (s *SMTPTransport) dial(ctx context.Context) (*smtp.Client, error) {
	dialer := &net.Dialer{Timeout: s.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", s.server.Addr())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	tlsConfig := &tls.Config{ServerName: s.server.Host}
	if s.server.TLSMode == "smtps" {
		tlsConn := tls.Client(conn, tlsConfig)
		if err := tlsConn.HandshakeContext(ctx); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to connect via SMTPS: %w", err)
		}
		conn = tlsConn
	}

	client, err := smtp.NewClient(conn, s.server.Host)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}
	if s.server.TLSMode == "starttls" {
		if err := client.StartTLS(tlsConfig); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to start TLS: %w", err)
		}
	}
	return client, nil
}

func (s *SMTPTransport) authenticate(client *smtp.Client) error {
	if s.server.User == "" || s.server.Password == "" {
		return nil
	}

	var auth smtp.Auth
	switch strings.ToLower(strings.TrimSpace(s.server.AuthType)) {
	case "none":
		return nil
	case "login":
		auth = &loginAuth{username: s.server.User, password: s.server.Password}
	default:
		auth = smtp.PlainAuth("", s.server.User, s.server.Password, s.server.Host)
	}

	if err := client.Auth(auth); err != nil {
		return fmt.Errorf("SMTP authentication failed: %w", err)
	}
	return nil
}

// loginAuth implements SMTP LOGIN authentication.
type loginAuth struct {
	username, password string
}

func (a *loginAuth) Start(_ *smtp.ServerInfo) (string, []byte, error) {
	return "LOGIN", []byte{}, nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	switch strings.ToLower(strings.TrimSpace(string(fromServer))) {
	case "username:":
		return []byte(a.username), nil
	case "password:":
		return []byte(a.password), nil
	}
	return nil, fmt.Errorf("unexpected server challenge: %s", fromServer)
}

// SMTPRouter maps ticket kinds to SMTP servers from configuration.
type SMTPRouter struct {
	cfg config.SMTPConfig
}

// NewSMTPRouter builds a router over the configured servers.
func NewSMTPRouter(cfg config.SMTPConfig) *SMTPRouter {
	return &SMTPRouter{cfg: cfg}
}

func (r *SMTPRouter) Route(kind string) (Route, bool) {
	server, ok := r.cfg.ServerFor(kind)
	if !ok {
		return Route{}, false
	}
	return Route{Transport: NewSMTPTransport(server), From: server.From}, true
}

// StaticRouter sends every kind through the same route.
type StaticRouter struct {
	Default Route
	Kinds   map[string]Route
}

func (r StaticRouter) Route(kind string) (Route, bool) {
	if route, ok := r.Kinds[kind]; ok {
		return route, true
	}
	if r.Default.Transport == nil {
		return Route{}, false
	}
	return r.Default, true
}
