package client

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ardnew/stkbridge/device"
	"github.com/ardnew/stkbridge/pkg"
	"github.com/ardnew/stkbridge/stk500"
)

// Transport moves packets to and from the bridge's bulk endpoints.
type Transport interface {
	pkg.PacketReader
	pkg.PacketWriter
	io.Closer
}

type config struct {
	verify    bool
	maxPacket int
	timeout   time.Duration
}

// Option configures a Client.
type Option func(*config)

// WithVerify checks the checksum of every response against the header the
// target must have sent.
func WithVerify(verify bool) Option {
	return func(c *config) {
		c.verify = verify
	}
}

// WithMaxPacket sets the bulk packet size. The default is 64.
func WithMaxPacket(n int) Option {
	return func(c *config) {
		c.maxPacket = n
	}
}

// WithTimeout bounds each transaction. Zero means no bound beyond the
// caller's context.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Client issues commands through a bridge. Transactions are serialized.
type Client struct {
	t   Transport
	cfg config

	mutex sync.Mutex
	rx    [stk500.MaxBodySize + stk500.ChecksumSize]byte
}

// New creates a client on t.
func New(t Transport, opts ...Option) *Client {
	cfg := config{maxPacket: device.DefaultMaxPacket}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{t: t, cfg: cfg}
}

// Transact sends one command body and returns the response body. With
// verification enabled a corrupt response returns [pkg.ErrChecksum].
func (c *Client) Transact(ctx context.Context, body []byte) ([]byte, error) {
	if len(body) > stk500.MaxBodySize {
		return nil, fmt.Errorf("command of %d bytes: %w", len(body), pkg.ErrFrameTooLarge)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.timeout)
		defer cancel()
	}

	if _, err := pkg.WriteTransfer(ctx, c.t, body, c.cfg.maxPacket); err != nil {
		return nil, fmt.Errorf("send command: %w", err)
	}

	n, err := pkg.ReadTransfer(ctx, c.t, c.rx[:], c.cfg.maxPacket)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	payload := c.rx[:n]

	pkg.LogDebug(pkg.ComponentHost, "transaction",
		"command", pkg.Hex(body),
		"response", pkg.Hex(payload))

	var resp []byte
	if c.cfg.verify {
		resp, err = stk500.VerifyResponse(payload, stk500.DefaultSequence)
		if err != nil {
			return nil, err
		}
	} else {
		if n < stk500.ChecksumSize {
			return nil, fmt.Errorf("empty response: %w", pkg.ErrProtocol)
		}
		resp = payload[:n-stk500.ChecksumSize]
	}
	return append([]byte(nil), resp...), nil
}

// SignOn identifies the programmer behind the bridge.
func (c *Client) SignOn(ctx context.Context) (string, error) {
	resp, err := c.Transact(ctx, []byte{stk500.CmdSignOn})
	if err != nil {
		return "", err
	}
	if len(resp) < 3 || resp[0] != stk500.CmdSignOn {
		return "", fmt.Errorf("sign-on answer %x: %w", resp, pkg.ErrProtocol)
	}
	if resp[1] != stk500.StatusCmdOK {
		return "", fmt.Errorf("sign-on status 0x%02X: %w", resp[1], pkg.ErrProtocol)
	}
	n := int(resp[2])
	if len(resp) < 3+n {
		return "", fmt.Errorf("sign-on name truncated: %w", pkg.ErrProtocol)
	}
	return string(resp[3 : 3+n]), nil
}

// Close closes the transport.
func (c *Client) Close() error {
	return c.t.Close()
}
