//go:build tinygo

package sntp

import (
	"context"
	"encoding/binary"
	"net"
	"time"

	"devicelink-go/errcode"
)

// ntpEpochOffset is the number of seconds between 1900 and 1970.
const ntpEpochOffset = 2208988800

// query sends a single SNTPv4 client request and stops waiting when ctx
// ends. The offset is the server transmit time minus the local receive
// time; round-trip correction is below what the device needs.
func query(ctx context.Context, server string, timeout time.Duration) (time.Duration, error) {
	type result struct {
		off time.Duration
		err error
	}
	ch := make(chan result, 1)
	go func() {
		off, err := exchange(server, timeout)
		ch <- result{off, err}
	}()
	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case r := <-ch:
		return r.off, r.err
	}
}

func exchange(server string, timeout time.Duration) (time.Duration, error) {
	const op = "sntp.query"
	conn, err := net.Dial("udp", net.JoinHostPort(server, "123"))
	if err != nil {
		return 0, errcode.Wrap(errcode.NotReady, op, err)
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))

	var pkt [48]byte
	pkt[0] = 0x23 // LI 0, version 4, mode 3 (client)
	if _, err := conn.Write(pkt[:]); err != nil {
		return 0, errcode.Wrap(errcode.Error, op, err)
	}
	n, err := conn.Read(pkt[:])
	if err != nil {
		return 0, errcode.Wrap(errcode.Timeout, op, err)
	}
	recv := time.Now()
	if n < 48 || pkt[1] == 0 {
		return 0, errcode.New(errcode.Error, op, "short or kiss-of-death reply")
	}
	sec := binary.BigEndian.Uint32(pkt[40:44])
	frac := binary.BigEndian.Uint32(pkt[44:48])
	nsec := (int64(frac) * 1e9) >> 32
	srv := time.Unix(int64(sec)-ntpEpochOffset, nsec)
	return srv.Sub(recv), nil
}
