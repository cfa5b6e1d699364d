// Package backend manages access to the transcription backend process. The
// session only consumes the Service contract; it never owns the process.
package backend

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"
)

const (
	probeTimeout = 500 * time.Millisecond
	pollInterval = 250 * time.Millisecond
)

// Service is the contract a session consumes from whatever hosts the
// transcription backend.
type Service interface {
	IsRunning() bool
	// Start brings the backend up if needed and blocks until it accepts
	// connections or ctx expires.
	Start(ctx context.Context) error
	Port() int
}

// Remote wraps an already-running backend. It never starts anything; Start
// only waits for the port to accept connections.
type Remote struct {
	host string
	port int
}

func NewRemote(host string, port int) *Remote {
	if host == "" {
		host = "127.0.0.1"
	}
	return &Remote{host: host, port: port}
}

func (r *Remote) Host() string { return r.host }
func (r *Remote) Port() int    { return r.port }

func (r *Remote) IsRunning() bool {
	return probe(r.host, r.port)
}

func (r *Remote) Start(ctx context.Context) error {
	return awaitPort(ctx, r.host, r.port)
}

// probe reports whether host:port currently accepts TCP connections.
func probe(host string, port int) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, strconv.Itoa(port)), probeTimeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// awaitPort polls host:port until it accepts a connection or ctx expires.
func awaitPort(ctx context.Context, host string, port int) error {
	if probe(host, port) {
		return nil
	}
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("backend at %s:%d not reachable: %w", host, port, ctx.Err())
		case <-ticker.C:
			if probe(host, port) {
				return nil
			}
		}
	}
}
