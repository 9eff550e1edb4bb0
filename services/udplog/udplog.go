// Package udplog mirrors log records to a fixed UDP destination. Sends are
// best effort and rate limited so a chatty subsystem cannot flood the link.
package udplog

import (
	"net"
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"devicelink-go/errcode"
)

const (
	DefaultHost  = "255.255.255.255"
	DefaultRate  = 50 // datagrams per second
	DefaultBurst = 20
)

type Options struct {
	Host  string
	Rate  float64 // datagrams per second; <0 disables limiting
	Burst int
}

type Stats struct {
	Opens, Sent, Failed, Limited uint64
}

// Sender satisfies both the relay's network sink and the supervisor's side
// channel: the supervisor (re)opens it after each join, the relay sends.
type Sender struct {
	host    string
	limiter *rate.Limiter

	mu   sync.RWMutex
	conn net.Conn
	port uint16

	opens, sent, failed, limited atomic.Uint64
}

func New(opts Options) *Sender {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	lim := rate.NewLimiter(rate.Inf, 0)
	switch {
	case opts.Rate == 0:
		opts.Rate = DefaultRate
		fallthrough
	case opts.Rate > 0:
		if opts.Burst <= 0 {
			opts.Burst = DefaultBurst
		}
		lim = rate.NewLimiter(rate.Limit(opts.Rate), opts.Burst)
	}
	return &Sender{host: opts.Host, limiter: lim}
}

// Open points the sender at host:port, replacing any previous socket.
func (s *Sender) Open(port uint16) error {
	const op = "udplog.Open"
	if port == 0 {
		return errcode.New(errcode.InvalidParams, op, "port 0")
	}
	c, err := net.Dial("udp", net.JoinHostPort(s.host, strconv.Itoa(int(port))))
	if err != nil {
		return errcode.Wrap(errcode.NotOpen, op, err)
	}
	s.mu.Lock()
	old := s.conn
	s.conn, s.port = c, port
	s.mu.Unlock()
	if old != nil {
		old.Close()
	}
	s.opens.Add(1)
	return nil
}

// Send writes p as one datagram.
func (s *Sender) Send(p []byte) error {
	const op = "udplog.Send"
	if !s.limiter.Allow() {
		s.limited.Add(1)
		return errcode.New(errcode.RateLimit, op, "")
	}
	s.mu.RLock()
	c := s.conn
	s.mu.RUnlock()
	if c == nil {
		s.failed.Add(1)
		return errcode.New(errcode.NotOpen, op, "")
	}
	if _, err := c.Write(p); err != nil {
		s.failed.Add(1)
		return errcode.Wrap(errcode.Error, op, err)
	}
	s.sent.Add(1)
	return nil
}

func (s *Sender) Close() error {
	s.mu.Lock()
	c := s.conn
	s.conn = nil
	s.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.Close()
}

func (s *Sender) Port() uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.port
}

func (s *Sender) Stats() Stats {
	return Stats{Opens: s.opens.Load(), Sent: s.sent.Load(), Failed: s.failed.Load(), Limited: s.limited.Load()}
}
