package protocol

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/arcanaland/grimoire/internal/card"
	"github.com/arcanaland/grimoire/internal/collection"
	"github.com/arcanaland/grimoire/internal/validator"
)

func sampleCard() card.Card {
	return card.New("ana", 1, "Cazador", 16, card.Multicolor, card.Creature, card.MythicRare,
		"No puede atacar cuerpo a cuerpo", 150, card.WithStrengthResistance(3))
}

func TestReadWriteFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	in := Frame{Header: Header{Flags: FlagResponse}, Payload: []byte(`{"status":"ok"}`)}
	if err := WriteFrame(&buf, in, DefaultLimits()); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	if buf.Len() != HeaderLen+len(in.Payload) {
		t.Fatalf("encoded length = %d", buf.Len())
	}
	out, err := ReadFrame(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	if out.Header.Magic != Magic || out.Header.Version != Version || out.Header.Flags != FlagResponse {
		t.Fatalf("header mismatch: %+v", out.Header)
	}
	if !bytes.Equal(out.Payload, in.Payload) {
		t.Fatalf("payload mismatch: %q", out.Payload)
	}
}

func TestReadFrameSplitAcrossReads(t *testing.T) {
	c := sampleCard()
	var buf bytes.Buffer
	if err := WriteRequest(&buf, Request{Action: ActionAdd, Card: &c}, DefaultLimits()); err != nil {
		t.Fatalf("write request: %v", err)
	}
	req, err := ReadRequest(iotest.OneByteReader(&buf), DefaultLimits())
	if err != nil {
		t.Fatalf("read request: %v", err)
	}
	if req.Action != ActionAdd || req.Card == nil || req.Card.Name != "Cazador" {
		t.Fatalf("unexpected request %+v", req)
	}
}

func TestReadFrameCoalesced(t *testing.T) {
	var buf bytes.Buffer
	for _, user := range []string{"ana", "bob"} {
		if err := WriteRequest(&buf, Request{Action: ActionShowAll, User: user}, DefaultLimits()); err != nil {
			t.Fatalf("write request: %v", err)
		}
	}
	r := bytes.NewReader(buf.Bytes())
	for _, want := range []string{"ana", "bob"} {
		req, err := ReadRequest(r, DefaultLimits())
		if err != nil {
			t.Fatalf("read request: %v", err)
		}
		if req.User != want {
			t.Fatalf("user = %q, want %q", req.User, want)
		}
	}
	if r.Len() != 0 {
		t.Fatalf("%d bytes left unread", r.Len())
	}
}

func TestReadFrameErrors(t *testing.T) {
	header := func(magic uint32, version uint16, n uint32) []byte {
		h := EncodeHeader(Header{Magic: magic, Version: version, PayloadLen: n})
		return h[:]
	}
	cases := []struct {
		name  string
		input []byte
		want  error
	}{
		{"short header", []byte{0x47, 0x52, 0x4d}, ErrShortHeader},
		{"empty", nil, ErrShortHeader},
		{"bad magic", header(0xdeadbeef, Version, 0), ErrBadMagic},
		{"unsupported version", header(Magic, 9, 0), ErrUnsupportedVersion},
		{"payload too large", header(Magic, Version, 1<<20+1), ErrPayloadTooLarge},
		{"truncated payload", append(header(Magic, Version, 10), []byte("{}")...), ErrTruncatedPayload},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadFrame(bytes.NewReader(tc.input), DefaultLimits())
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if !IsDecodeError(err) {
				t.Fatalf("%v should classify as decode error", err)
			}
		})
	}
}

func TestWriteFrameRejectsOversizePayload(t *testing.T) {
	limits := Limits{MaxPayloadBytes: 4}
	err := WriteFrame(&bytes.Buffer{}, Frame{Payload: []byte("12345")}, limits)
	if !errors.Is(err, ErrPayloadTooLarge) {
		t.Fatalf("expected ErrPayloadTooLarge, got %v", err)
	}
}

func TestHeaderLayout(t *testing.T) {
	h := EncodeHeader(Header{Magic: Magic, Version: Version, Flags: FlagResponse | FlagError, PayloadLen: 7})
	if string(h[0:4]) != "GRM1" {
		t.Fatalf("magic bytes = %q", h[0:4])
	}
	if binary.BigEndian.Uint16(h[6:8]) != 0x3 || binary.BigEndian.Uint32(h[8:12]) != 7 {
		t.Fatalf("unexpected header bytes % x", h)
	}
}

func TestDecodeRequestShapes(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    error
	}{
		{"add", `{"action":"add","card":{"user":"ana","id":1}}`, nil},
		{"delete", `{"action":"delete","user":"ana","id":0}`, nil},
		{"showAll", `{"action":"showAll","user":"ana"}`, nil},
		{"modify", `{"action":"modify","user":"ana","id":1,"field":"value","value":12.5}`, nil},
		{"add without card", `{"action":"add"}`, ErrDecode},
		{"show without id", `{"action":"show","user":"ana"}`, ErrDecode},
		{"modify without field", `{"action":"modify","user":"ana","id":1}`, ErrDecode},
		{"missing action", `{"user":"ana"}`, ErrDecode},
		{"unknown action", `{"action":"burn","user":"ana"}`, ErrUnknownAction},
		{"not json", `action=add`, ErrDecode},
		{"object value", `{"action":"modify","user":"ana","id":1,"field":"name","value":{}}`, ErrDecode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeRequest([]byte(tc.payload))
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestScalarAcceptsNumbers(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"action":"modify","user":"ana","id":1,"field":"value","value":12.5}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if req.Value != "12.5" {
		t.Fatalf("value = %q", req.Value)
	}
	if user, id := req.Key(); user != "ana" || id != 1 {
		t.Fatalf("key = %s/%d", user, id)
	}
}

func TestListResponseKeepsEmptyArray(t *testing.T) {
	b, err := json.Marshal(ListResponse(nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"cards":[]}` {
		t.Fatalf("got %s", b)
	}
	b, err = json.Marshal(OK())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"status":"ok"}` {
		t.Fatalf("got %s", b)
	}
}

func TestResponseRoundTripSetsErrorFlag(t *testing.T) {
	var buf bytes.Buffer
	resp := ErrorResponse(fmt.Errorf("%w: user=ana id=9", collection.ErrNotFound))
	if _, err := WriteResponse(&buf, resp, DefaultLimits()); err != nil {
		t.Fatalf("write response: %v", err)
	}
	var h [HeaderLen]byte
	copy(h[:], buf.Bytes())
	if flags := DecodeHeader(h).Flags; flags != FlagResponse|FlagError {
		t.Fatalf("flags = %#x", flags)
	}
	got, err := ReadResponse(&buf, DefaultLimits())
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if got.Code != CodeNotFound || !strings.Contains(got.Error, "user=ana id=9") {
		t.Fatalf("unexpected response %+v", got)
	}
}

func TestWriteResponseReplacesOversizedReply(t *testing.T) {
	limits := Limits{MaxPayloadBytes: 512}
	cards := make([]card.Card, 20)
	for i := range cards {
		cards[i] = card.New("ana", i+1, "Opt", 1, card.Blue, card.Instant, card.Common,
			strings.Repeat("Scry 1. Draw a card. ", 10), 0.25)
	}

	var buf bytes.Buffer
	sent, err := WriteResponse(&buf, ListResponse(cards), limits)
	if err != nil {
		t.Fatalf("write response: %v", err)
	}
	if sent.Code != CodeTooLarge || sent.Cards != nil {
		t.Fatalf("sent = %+v", sent)
	}
	got, err := ReadResponse(&buf, limits)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if got.Code != CodeTooLarge || !strings.Contains(got.Error, "512 byte limit") {
		t.Fatalf("got %+v", got)
	}
	if !errors.Is(got.Code.Sentinel(), ErrResponseTooLarge) {
		t.Fatalf("sentinel = %v", got.Code.Sentinel())
	}
}

func TestReadRequestRejectsResponseFrame(t *testing.T) {
	var buf bytes.Buffer
	if _, err := WriteResponse(&buf, OK(), DefaultLimits()); err != nil {
		t.Fatalf("write response: %v", err)
	}
	if _, err := ReadRequest(&buf, DefaultLimits()); !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestCodeMapping(t *testing.T) {
	verr := validator.Check(card.Card{})
	cases := []struct {
		err  error
		code Code
	}{
		{fmt.Errorf("x: %w", collection.ErrNotFound), CodeNotFound},
		{collection.ErrAlreadyExists, CodeAlreadyExists},
		{card.ErrUnknownField, CodeUnknownField},
		{collection.ErrReadOnlyField, CodeReadOnlyField},
		{verr, CodeValidation},
		{ErrUnknownAction, CodeDecode},
		{&collection.IOError{Op: "write", Path: "/x", Err: errors.New("boom")}, CodeIO},
	}
	for _, tc := range cases {
		if got := CodeFor(tc.err); got != tc.code {
			t.Fatalf("CodeFor(%v) = %s, want %s", tc.err, got, tc.code)
		}
		if sentinel := tc.code.Sentinel(); tc.code != CodeIO && !errors.Is(tc.err, sentinel) {
			t.Fatalf("%s sentinel %v does not match %v", tc.code, sentinel, tc.err)
		}
	}
}
