package client

import (
	"context"
	"errors"
	"net"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/arcanaland/grimoire/internal/card"
	"github.com/arcanaland/grimoire/internal/collection"
	"github.com/arcanaland/grimoire/internal/protocol"
	"github.com/arcanaland/grimoire/internal/server"
	"github.com/arcanaland/grimoire/internal/testutil/testlog"
	"github.com/arcanaland/grimoire/internal/validator"
)

func cazador() card.Card {
	return card.New("ana", 1, "Cazador", 16, card.Multicolor, card.Creature, card.MythicRare,
		"No puede atacar cuerpo a cuerpo", 150, card.WithStrengthResistance(3))
}

func startServer(t *testing.T) string {
	t.Helper()
	store := collection.NewStore(t.TempDir())
	srv := server.New(server.Config{ReadTimeout: 2 * time.Second}, server.NewDispatcher(store))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ln.Addr().String()
}

func TestValidationFailureNeverDials(t *testing.T) {
	testlog.Start(t)
	c := New("127.0.0.1:1")
	dials := 0
	c.dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
		dials++
		return nil, errors.New("should not dial")
	}
	ctx := context.Background()

	bad := card.New("ana", 3, "Jace", 4, card.Blue, card.Planeswalker, card.Rare, "+1: draw a card", 30)
	err := c.Add(ctx, bad)
	var verr *validator.ValidationError
	if !errors.As(err, &verr) || !verr.Has(validator.ViolationLoyalty) {
		t.Fatalf("expected loyalty violation, got %v", err)
	}
	if err := c.Update(ctx, card.Card{}); !errors.Is(err, validator.ErrInvalid) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := c.Delete(ctx, "", 1); !errors.Is(err, validator.ErrInvalid) {
		t.Fatalf("expected invalid user, got %v", err)
	}
	if _, err := c.Show(ctx, "ana", -2); !errors.Is(err, validator.ErrInvalid) {
		t.Fatalf("expected invalid id, got %v", err)
	}
	if _, err := c.ShowAll(ctx, "a/b"); !errors.Is(err, validator.ErrInvalid) {
		t.Fatalf("expected invalid user, got %v", err)
	}
	if _, err := c.Modify(ctx, "ana", 1, "", "x"); !errors.Is(err, collection.ErrUnknownField) {
		t.Fatalf("expected unknown field, got %v", err)
	}
	if dials != 0 {
		t.Fatalf("dialed %d times", dials)
	}
}

func TestClientScenario(t *testing.T) {
	testlog.Start(t)
	c := New(startServer(t), WithTimeout(2*time.Second))
	ctx := context.Background()

	if err := c.Add(ctx, cazador()); err != nil {
		t.Fatalf("add: %v", err)
	}
	err := c.Add(ctx, cazador())
	if !errors.Is(err, collection.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Code != protocol.CodeAlreadyExists {
		t.Fatalf("expected RemoteError, got %T", err)
	}

	next := cazador()
	next.Rarity = card.Rare
	if err := c.Update(ctx, next); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := c.Show(ctx, "ana", 1)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if got.Rarity != card.Rare {
		t.Fatalf("rarity = %s", got.Rarity)
	}

	if _, err := c.Modify(ctx, "ana", 1, "power", "3"); !errors.Is(err, collection.ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if _, err := c.Modify(ctx, "ana", 1, "id", "3"); !errors.Is(err, collection.ErrReadOnlyField) {
		t.Fatalf("expected ErrReadOnlyField, got %v", err)
	}
	if _, err := c.Modify(ctx, "ana", 1, "strengthResistance", ""); !errors.Is(err, validator.ErrInvalid) {
		t.Fatalf("expected remote validation error, got %v", err)
	}
	modified, err := c.Modify(ctx, "ana", 1, "name", "Cazador Nocturno")
	if err != nil {
		t.Fatalf("modify: %v", err)
	}
	if modified.Name != "Cazador Nocturno" {
		t.Fatalf("name = %q", modified.Name)
	}

	cards, err := c.ShowAll(ctx, "ana")
	if err != nil || len(cards) != 1 {
		t.Fatalf("showAll: %v %v", cards, err)
	}
	if err := c.Delete(ctx, "ana", 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Show(ctx, "ana", 1); !errors.Is(err, collection.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	cards, err = c.ShowAll(ctx, "ana")
	if err != nil || cards == nil || len(cards) != 0 {
		t.Fatalf("expected empty list, got %v %v", cards, err)
	}
}

func TestClientWebSocket(t *testing.T) {
	testlog.Start(t)
	store := collection.NewStore(t.TempDir())
	admin := server.NewAdmin("", server.NewDispatcher(store), server.DefaultConfig())
	ts := httptest.NewServer(admin.Handler())
	defer ts.Close()

	c := New("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", WithTimeout(2*time.Second))
	ctx := context.Background()
	if err := c.Add(ctx, cazador()); err != nil {
		t.Fatalf("add over ws: %v", err)
	}
	if _, err := c.Show(ctx, "ana", 2); !errors.Is(err, collection.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	cards, err := c.ShowAll(ctx, "ana")
	if err != nil || len(cards) != 1 {
		t.Fatalf("showAll over ws: %v %v", cards, err)
	}
}

func TestDialFailure(t *testing.T) {
	testlog.Start(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	c := New(addr, WithTimeout(time.Second))
	_, err = c.ShowAll(context.Background(), "ana")
	if err == nil {
		t.Fatalf("expected dial error")
	}
	var remote *RemoteError
	if errors.As(err, &remote) {
		t.Fatalf("dial failure reported as remote error: %v", err)
	}
}

func TestRemoteErrorIs(t *testing.T) {
	err := &RemoteError{Code: protocol.CodeNotFound, Message: "collection: card not found: user=ana id=1"}
	if !errors.Is(err, collection.ErrNotFound) {
		t.Fatalf("expected ErrNotFound match")
	}
	if errors.Is(err, collection.ErrAlreadyExists) {
		t.Fatalf("unexpected ErrAlreadyExists match")
	}
	if errors.Is(&RemoteError{Code: protocol.CodeIO, Message: "disk"}, protocol.ErrDecode) {
		t.Fatalf("io error must not match decode")
	}
}

func TestShowAllTooLargeIsRemoteError(t *testing.T) {
	testlog.Start(t)
	store := collection.NewStore(t.TempDir())
	rules := strings.Repeat("Draw two cards, then discard a card. ", 20)
	for i := 1; i <= 30; i++ {
		if err := store.Add(card.New("ana", i, "Tolarian Winds", 3, card.Blue, card.Instant, card.Common, rules, 0.1)); err != nil {
			t.Fatalf("add %d: %v", i, err)
		}
	}
	limits := protocol.Limits{MaxPayloadBytes: 8 << 10}
	srv := server.New(server.Config{ReadTimeout: 2 * time.Second, Limits: limits}, server.NewDispatcher(store))
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()
	defer func() {
		cancel()
		<-done
	}()

	c := New(ln.Addr().String(), WithTimeout(2*time.Second), WithMaxPayload(limits.MaxPayloadBytes))
	_, err = c.ShowAll(context.Background(), "ana")
	var remote *RemoteError
	if !errors.As(err, &remote) || remote.Code != protocol.CodeTooLarge {
		t.Fatalf("expected a too_large remote error, got %v", err)
	}
	if !errors.Is(err, protocol.ErrResponseTooLarge) {
		t.Fatalf("remote error does not match ErrResponseTooLarge: %v", err)
	}
}
