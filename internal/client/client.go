package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/arcanaland/grimoire/internal/card"
	"github.com/arcanaland/grimoire/internal/protocol"
	"github.com/arcanaland/grimoire/internal/validator"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const DefaultTimeout = 10 * time.Second

// RemoteError is a failure reported by the server. It matches the sentinel
// of its code with errors.Is.
type RemoteError struct {
	Code    protocol.Code
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}

func (e *RemoteError) Is(target error) bool {
	sentinel := e.Code.Sentinel()
	return sentinel != nil && target == sentinel
}

// Client sends one request per connection, over TCP or a websocket when
// the address starts with ws:// or wss://.
type Client struct {
	addr    string
	timeout time.Duration
	limits  protocol.Limits
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
}

type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithMaxPayload bounds the size of a reply the client will accept.
func WithMaxPayload(n uint32) Option {
	return func(c *Client) {
		if n > 0 {
			c.limits = protocol.Limits{MaxPayloadBytes: n}
		}
	}
}

func New(addr string, opts ...Option) *Client {
	d := &net.Dialer{}
	c := &Client{
		addr:    strings.TrimSpace(addr),
		timeout: DefaultTimeout,
		limits:  protocol.DefaultLimits(),
		dial:    d.DialContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Addr() string {
	return c.addr
}

func (c *Client) useWebSocket() bool {
	return strings.HasPrefix(c.addr, "ws://") || strings.HasPrefix(c.addr, "wss://")
}

func (c *Client) Add(ctx context.Context, cd card.Card) error {
	if err := validator.Check(cd); err != nil {
		return err
	}
	_, err := c.send(ctx, protocol.Request{Action: protocol.ActionAdd, Card: &cd})
	return err
}

func (c *Client) Update(ctx context.Context, cd card.Card) error {
	if err := validator.Check(cd); err != nil {
		return err
	}
	_, err := c.send(ctx, protocol.Request{Action: protocol.ActionUpdate, Card: &cd})
	return err
}

func (c *Client) Delete(ctx context.Context, user string, id int) error {
	if err := validator.CheckKey(user, id); err != nil {
		return err
	}
	_, err := c.send(ctx, protocol.Request{Action: protocol.ActionDelete, User: user, ID: &id})
	return err
}

func (c *Client) Show(ctx context.Context, user string, id int) (card.Card, error) {
	if err := validator.CheckKey(user, id); err != nil {
		return card.Card{}, err
	}
	resp, err := c.send(ctx, protocol.Request{Action: protocol.ActionShow, User: user, ID: &id})
	if err != nil {
		return card.Card{}, err
	}
	if resp.Card == nil {
		return card.Card{}, fmt.Errorf("%w: show response without card", protocol.ErrDecode)
	}
	return *resp.Card, nil
}

func (c *Client) ShowAll(ctx context.Context, user string) ([]card.Card, error) {
	if err := validator.CheckUser(user); err != nil {
		return nil, err
	}
	resp, err := c.send(ctx, protocol.Request{Action: protocol.ActionShowAll, User: user})
	if err != nil {
		return nil, err
	}
	if resp.Cards == nil {
		return []card.Card{}, nil
	}
	return resp.Cards, nil
}

func (c *Client) Modify(ctx context.Context, user string, id int, field, value string) (card.Card, error) {
	if err := validator.CheckKey(user, id); err != nil {
		return card.Card{}, err
	}
	if strings.TrimSpace(field) == "" {
		return card.Card{}, fmt.Errorf("%w: empty field name", card.ErrUnknownField)
	}
	resp, err := c.send(ctx, protocol.Request{
		Action: protocol.ActionModify,
		User:   user,
		ID:     &id,
		Field:  field,
		Value:  protocol.Scalar(value),
	})
	if err != nil {
		return card.Card{}, err
	}
	if resp.Card == nil {
		return card.Card{}, fmt.Errorf("%w: modify response without card", protocol.ErrDecode)
	}
	return *resp.Card, nil
}

// send performs one exchange and turns an error envelope into a RemoteError.
func (c *Client) send(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	if c.addr == "" {
		return protocol.Response{}, errors.New("client: no server address")
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var (
		resp protocol.Response
		err  error
	)
	if c.useWebSocket() {
		resp, err = c.sendWS(ctx, req)
	} else {
		resp, err = c.sendTCP(ctx, req)
	}
	if err != nil {
		return protocol.Response{}, err
	}
	log.Debug().
		Str("addr", c.addr).
		Str("action", string(req.Action)).
		Dur("duration", time.Since(start)).
		Bool("failed", resp.Failed()).
		Msg("request sent")

	if resp.Failed() {
		msg := resp.Error
		if msg == "" {
			msg = string(resp.Code)
		}
		return resp, &RemoteError{Code: resp.Code, Message: msg}
	}
	return resp, nil
}

func (c *Client) sendTCP(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	conn, err := c.dial(ctx, "tcp", c.addr)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("client: dial %s: %w", c.addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := protocol.WriteRequest(conn, req, c.limits); err != nil {
		return protocol.Response{}, fmt.Errorf("client: send: %w", err)
	}
	resp, err := protocol.ReadResponse(conn, c.limits)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("client: receive: %w", err)
	}
	return resp, nil
}

func (c *Client) sendWS(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	dialer := websocket.Dialer{
		NetDialContext:   c.dial,
		HandshakeTimeout: c.timeout,
	}
	conn, _, err := dialer.DialContext(ctx, c.addr, nil)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("client: dial %s: %w", c.addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetWriteDeadline(deadline)
		_ = conn.SetReadDeadline(deadline)
	}
	conn.SetReadLimit(int64(c.limits.MaxPayloadBytes))

	payload, err := json.Marshal(req)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("client: encode request: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return protocol.Response{}, fmt.Errorf("client: send: %w", err)
	}
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return protocol.Response{}, fmt.Errorf("client: receive: %w", err)
	}
	return protocol.DecodeResponse(raw)
}
