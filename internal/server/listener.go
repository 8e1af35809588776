package server

import (
	"net"
	"sync"
	"sync/atomic"
)

// countingListener tracks how many accepted connections are still open.
type countingListener struct {
	net.Listener
	live *atomic.Int64
}

func (l *countingListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}
	l.live.Add(1)
	return &countedConn{Conn: conn, live: l.live}, nil
}

type countedConn struct {
	net.Conn
	live *atomic.Int64
	once sync.Once
}

func (c *countedConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(func() { c.live.Add(-1) })
	return err
}
