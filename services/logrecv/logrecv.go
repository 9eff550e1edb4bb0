//go:build !tinygo

// Package logrecv collects relayed device log datagrams on a host and
// writes them as structured entries, optionally to rotated files.
package logrecv

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"regexp"
	"strconv"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"

	"devicelink-go/types"
)

// Record is one parsed datagram.
type Record struct {
	Level types.Level // LevelOff when the tag was not recognised
	Core  int
	File  string
	Func  string
	Line  int
	Text  string
}

var recordRE = regexp.MustCompile(`(?s)^(?:\x1b\[\d+m)?(-E-|-W-|-I-|-D-|---) C(\d+) ([^:]*):(.*)\.(\d+)\x1b\[0m: (.*?)\n?$`)

var tagLevels = map[string]types.Level{
	"-E-": types.LevelError,
	"-W-": types.LevelWarning,
	"-I-": types.LevelInfo,
	"-D-": types.LevelDebug,
}

// Parse splits a relayed record into its preamble fields and text.
func Parse(b []byte) (Record, bool) {
	m := recordRE.FindSubmatch(b)
	if m == nil {
		return Record{}, false
	}
	core, _ := strconv.Atoi(string(m[2]))
	line, _ := strconv.Atoi(string(m[5]))
	return Record{
		Level: tagLevels[string(m[1])],
		Core:  core,
		File:  string(m[3]),
		Func:  string(m[4]),
		Line:  line,
		Text:  string(m[6]),
	}, true
}

// ---- output ----

type FileOptions struct {
	Path       string // empty writes to stdout
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewLogger builds the JSON logger the receiver writes to. The returned
// closer releases the rotated file, if any.
func NewLogger(opts FileOptions) (*logrus.Logger, io.Closer) {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetLevel(logrus.DebugLevel)
	if opts.Path == "" {
		log.SetOutput(os.Stdout)
		return log, nopCloser{}
	}
	lj := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
		Compress:   opts.Compress,
	}
	log.SetOutput(lj)
	return log, lj
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func logrusLevel(l types.Level) logrus.Level {
	switch l {
	case types.LevelError:
		return logrus.ErrorLevel
	case types.LevelWarning:
		return logrus.WarnLevel
	case types.LevelDebug:
		return logrus.DebugLevel
	}
	return logrus.InfoLevel
}

// ---- receiver ----

type Stats struct {
	Received, Malformed uint64
}

type Receiver struct {
	conn *net.UDPConn
	log  logrus.FieldLogger

	received, malformed atomic.Uint64
}

// Listen binds addr (host:port, host may be empty for all interfaces).
func Listen(addr string, log logrus.FieldLogger) (*Receiver, error) {
	ua, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	c, err := net.ListenUDP("udp", ua)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Receiver{conn: c, log: log}, nil
}

func (r *Receiver) Addr() net.Addr { return r.conn.LocalAddr() }

func (r *Receiver) Stats() Stats {
	return Stats{Received: r.received.Load(), Malformed: r.malformed.Load()}
}

// Run reads datagrams until ctx is done. The socket is closed on return.
func (r *Receiver) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-ctx.Done()
		return r.conn.Close()
	})
	g.Go(func() error {
		buf := make([]byte, 2048)
		for {
			n, from, err := r.conn.ReadFromUDP(buf)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return err
			}
			r.handle(from, buf[:n])
		}
	})
	return g.Wait()
}

func (r *Receiver) handle(from *net.UDPAddr, b []byte) {
	r.received.Add(1)
	src := ""
	if from != nil {
		src = from.IP.String()
	}
	rec, ok := Parse(b)
	if !ok {
		r.malformed.Add(1)
		r.log.WithField("device", src).WithField("raw", string(b)).Warn("malformed record")
		return
	}
	r.log.WithFields(logrus.Fields{
		"device": src,
		"core":   rec.Core,
		"file":   rec.File,
		"func":   rec.Func,
		"line":   rec.Line,
	}).Log(logrusLevel(rec.Level), rec.Text)
}
