package mailing

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

// smtpSession is one authenticated relay connection. Every call is bounded
// by the deadline it is given.
type smtpSession interface {
	Send(deadline time.Time, from string, to []string, msg io.WriterTo) error
	// Close says QUIT and drops the connection.
	Close(deadline time.Time) error
	// Abort drops the connection without talking to the relay. Safe to
	// call while a Send is blocked on the same session.
	Abort() error
}

type smtpDialer interface {
	Dial(ctx context.Context, deadline time.Time) (smtpSession, error)
}

// netDialer opens relay connections itself so the greeting, TLS and AUTH
// exchanges all run under a connection deadline and the caller's ctx.
// Port 465 uses implicit TLS; other ports upgrade with STARTTLS when the
// relay offers it.
type netDialer struct {
	host     string
	port     int
	username string
	password string
	// tlsConfig overrides the default, which verifies against host.
	tlsConfig *tls.Config
}

func (d *netDialer) ssl() bool { return d.port == 465 }

func (d *netDialer) tlsConf() *tls.Config {
	if d.tlsConfig != nil {
		return d.tlsConfig
	}
	return &tls.Config{ServerName: d.host}
}

func (d *netDialer) Dial(ctx context.Context, deadline time.Time) (smtpSession, error) {
	nd := net.Dialer{Deadline: deadline}
	raw, err := nd.DialContext(ctx, "tcp", net.JoinHostPort(d.host, strconv.Itoa(d.port)))
	if err != nil {
		return nil, err
	}
	// A cancelled ctx unblocks whatever handshake step is in progress.
	stop := context.AfterFunc(ctx, func() { raw.Close() })

	s, err := d.handshake(raw, deadline)
	if !stop() {
		raw.Close()
		return nil, ctx.Err()
	}
	if err != nil {
		raw.Close()
		return nil, err
	}
	return s, nil
}

func (d *netDialer) handshake(raw net.Conn, deadline time.Time) (*netSession, error) {
	if err := raw.SetDeadline(deadline); err != nil {
		return nil, err
	}
	conn := raw
	if d.ssl() {
		conn = tls.Client(raw, d.tlsConf())
	}
	c, err := smtp.NewClient(conn, d.host)
	if err != nil {
		return nil, err
	}
	if !d.ssl() {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(d.tlsConf()); err != nil {
				return nil, err
			}
		}
	}
	if d.username != "" {
		if ok, mechs := c.Extension("AUTH"); ok {
			if err := c.Auth(d.auth(mechs)); err != nil {
				return nil, err
			}
		}
	}
	return &netSession{raw: raw, client: c}, nil
}

// auth picks the strongest mechanism the relay advertises, in the order
// CRAM-MD5, LOGIN, PLAIN.
func (d *netDialer) auth(mechs string) smtp.Auth {
	switch {
	case strings.Contains(mechs, "CRAM-MD5"):
		return smtp.CRAMMD5Auth(d.username, d.password)
	case strings.Contains(mechs, "LOGIN"):
		return &loginAuth{username: d.username, password: d.password, host: d.host}
	default:
		return smtp.PlainAuth("", d.username, d.password, d.host)
	}
}

type netSession struct {
	raw    net.Conn
	client *smtp.Client
}

func (s *netSession) Send(deadline time.Time, from string, to []string, msg io.WriterTo) error {
	if err := s.raw.SetDeadline(deadline); err != nil {
		return err
	}
	if err := s.client.Mail(from); err != nil {
		return err
	}
	for _, addr := range to {
		if err := s.client.Rcpt(addr); err != nil {
			return err
		}
	}
	w, err := s.client.Data()
	if err != nil {
		return err
	}
	if _, err := msg.WriteTo(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func (s *netSession) Close(deadline time.Time) error {
	if err := s.raw.SetDeadline(deadline); err != nil {
		s.raw.Close()
		return err
	}
	err := s.client.Quit()
	s.raw.Close()
	return err
}

func (s *netSession) Abort() error {
	err := s.raw.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// loginAuth implements the LOGIN mechanism, which net/smtp lacks and
// Office 365 style relays still require.
type loginAuth struct {
	username string
	password string
	host     string
}

func (a *loginAuth) Start(server *smtp.ServerInfo) (string, []byte, error) {
	if !server.TLS {
		return "", nil, errors.New("smtp: refusing LOGIN over an unencrypted connection")
	}
	if server.Name != a.host {
		return "", nil, errors.New("smtp: wrong host name")
	}
	return "LOGIN", nil, nil
}

func (a *loginAuth) Next(fromServer []byte, more bool) ([]byte, error) {
	if !more {
		return nil, nil
	}
	switch {
	case bytes.EqualFold(fromServer, []byte("Username:")):
		return []byte(a.username), nil
	case bytes.EqualFold(fromServer, []byte("Password:")):
		return []byte(a.password), nil
	default:
		return nil, fmt.Errorf("smtp: unexpected server challenge: %s", fromServer)
	}
}
