package notification

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"time"
)

// Relay is the transactional mail relay behind the client.
type Relay interface {
	// Loaded reports whether the relay SDK is configured and usable.
	Loaded(ctx context.Context) bool
	// Init verifies the relay account. Called until it succeeds.
	Init(ctx context.Context) error
	// Send delivers one templated message and returns the relay status code.
	Send(ctx context.Context, recipient string, params TemplateParams) (int, error)
	Name() string
}

// ConnectivityProbe reports whether the network is reachable.
type ConnectivityProbe interface {
	Online(ctx context.Context) bool
}

// DialProbe checks reachability by opening a TCP connection.
type DialProbe struct {
	Address string
	Timeout time.Duration
}

func (p DialProbe) Online(ctx context.Context) bool {
	if p.Address == "" {
		return true
	}
	d := net.Dialer{Timeout: p.Timeout}
	conn, err := d.DialContext(ctx, "tcp", p.Address)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

var mobileUserAgent = regexp.MustCompile(`(?i)Mobile|Android|iPhone|iPad|iPod`)

// IsMobileUserAgent reports whether ua names a mobile device.
func IsMobileUserAgent(ua string) bool {
	return mobileUserAgent.MatchString(ua)
}

var (
	ErrOffline        = errors.New("notification: network offline")
	ErrRelayNotLoaded = errors.New("notification: relay not loaded")
	ErrInitFailed     = errors.New("notification: relay initialization failed")
	ErrSendFailed     = errors.New("notification: relay send failed")
	ErrSendTimeout    = errors.New("notification: relay send timed out")
)

// RelayError carries a relay-reported failure with its status code.
type RelayError struct {
	StatusCode int
	Err        error
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay status %d: %v", e.StatusCode, e.Err)
}

func (e *RelayError) Unwrap() error { return e.Err }
