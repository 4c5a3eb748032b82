package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/arcanaland/grimoire/internal/card"
	"github.com/arcanaland/grimoire/internal/collection"
	"github.com/arcanaland/grimoire/internal/validator"
)

// Action names the store operation a request asks for
type Action string

const (
	ActionAdd     Action = "add"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionShow    Action = "show"
	ActionShowAll Action = "showAll"
	ActionModify  Action = "modify"
)

// Actions lists every action the dispatcher serves.
func Actions() []Action {
	return []Action{ActionAdd, ActionUpdate, ActionDelete, ActionShow, ActionShowAll, ActionModify}
}

func (a Action) Known() bool {
	for _, known := range Actions() {
		if a == known {
			return true
		}
	}
	return false
}

var (
	// ErrDecode covers every malformed request: bad framing, bad JSON,
	// unknown action or a payload that does not fit the action.
	ErrDecode = errors.New("protocol: malformed request")
	// ErrUnknownAction is returned for an action outside Actions().
	ErrUnknownAction = fmt.Errorf("%w: unknown action", ErrDecode)
	// ErrResponseTooLarge replaces a reply that does not fit the payload limit.
	ErrResponseTooLarge = errors.New("protocol: response too large")
)

// Scalar is a field value on the wire. JSON strings, numbers and booleans
// are all accepted and kept in their text form.
type Scalar string

func (s *Scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return fmt.Errorf("%w: empty value", ErrDecode)
	}
	switch b[0] {
	case '"':
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*s = Scalar(str)
	case 'n':
		*s = ""
	case '{', '[':
		return fmt.Errorf("%w: value must be a scalar", ErrDecode)
	default:
		*s = Scalar(b)
	}
	return nil
}

// Request is the action envelope sent by a client
type Request struct {
	Action Action     `json:"action"`
	Card   *card.Card `json:"card,omitempty"`
	User   string     `json:"user,omitempty"`
	ID     *int       `json:"id,omitempty"`
	Field  string     `json:"field,omitempty"`
	Value  Scalar     `json:"value,omitempty"`
}

// Check verifies that the payload carries what the action needs. It does
// not validate card contents; that is the store's job.
func (r Request) Check() error {
	switch r.Action {
	case ActionAdd, ActionUpdate:
		if r.Card == nil {
			return fmt.Errorf("%w: %s requires card", ErrDecode, r.Action)
		}
	case ActionDelete, ActionShow:
		if r.User == "" || r.ID == nil {
			return fmt.Errorf("%w: %s requires user and id", ErrDecode, r.Action)
		}
	case ActionShowAll:
		if r.User == "" {
			return fmt.Errorf("%w: %s requires user", ErrDecode, r.Action)
		}
	case ActionModify:
		if r.User == "" || r.ID == nil || r.Field == "" {
			return fmt.Errorf("%w: %s requires user, id and field", ErrDecode, r.Action)
		}
	case "":
		return fmt.Errorf("%w: missing action", ErrDecode)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, r.Action)
	}
	return nil
}

// Key returns the id or -1 when the request carries none
func (r Request) Key() (string, int) {
	if r.ID == nil {
		return r.User, -1
	}
	return r.User, *r.ID
}

// Code classifies a failure on the wire
type Code string

const (
	CodeNotFound      Code = "not_found"
	CodeAlreadyExists Code = "already_exists"
	CodeUnknownField  Code = "unknown_field"
	CodeReadOnlyField Code = "read_only_field"
	CodeValidation    Code = "validation"
	CodeDecode        Code = "decode"
	CodeIO            Code = "io"
	CodeTooLarge      Code = "too_large"
)

// CodeFor maps an error from the store or the codec to its wire code.
// Anything unrecognised is reported as io.
func CodeFor(err error) Code {
	switch {
	case errors.Is(err, collection.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, collection.ErrAlreadyExists):
		return CodeAlreadyExists
	case errors.Is(err, collection.ErrUnknownField):
		return CodeUnknownField
	case errors.Is(err, collection.ErrReadOnlyField):
		return CodeReadOnlyField
	case errors.Is(err, validator.ErrInvalid):
		return CodeValidation
	case errors.Is(err, ErrResponseTooLarge):
		return CodeTooLarge
	case IsDecodeError(err):
		return CodeDecode
	default:
		return CodeIO
	}
}

// Sentinel is the inverse of CodeFor. Unknown codes yield nil.
func (c Code) Sentinel() error {
	switch c {
	case CodeNotFound:
		return collection.ErrNotFound
	case CodeAlreadyExists:
		return collection.ErrAlreadyExists
	case CodeUnknownField:
		return collection.ErrUnknownField
	case CodeReadOnlyField:
		return collection.ErrReadOnlyField
	case CodeValidation:
		return validator.ErrInvalid
	case CodeDecode:
		return ErrDecode
	case CodeTooLarge:
		return ErrResponseTooLarge
	default:
		return nil
	}
}

// IsDecodeError reports whether err came from framing or request decoding
func IsDecodeError(err error) bool {
	for _, target := range []error{ErrDecode, ErrShortHeader, ErrBadMagic, ErrUnsupportedVersion, ErrPayloadTooLarge, ErrTruncatedPayload} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

const StatusOK = "ok"

// Response is the single message a server sends back per connection.
type Response struct {
	Status string      `json:"status,omitempty"`
	Card   *card.Card  `json:"card,omitempty"`
	Cards  []card.Card `json:"cards,omitempty"`
	Error  string      `json:"error,omitempty"`
	Code   Code        `json:"code,omitempty"`
}

// MarshalJSON keeps "cards" present on a listing even when it is empty.
func (r Response) MarshalJSON() ([]byte, error) {
	type plain Response
	if r.Cards == nil {
		return json.Marshal(plain(r))
	}
	return json.Marshal(struct {
		plain
		Cards []card.Card `json:"cards"`
	}{plain(r), r.Cards})
}

func OK() Response {
	return Response{Status: StatusOK}
}

func CardResponse(c card.Card) Response {
	return Response{Card: &c}
}

func ListResponse(cards []card.Card) Response {
	if cards == nil {
		cards = []card.Card{}
	}
	return Response{Cards: cards}
}

func ErrorResponse(err error) Response {
	return Response{Error: err.Error(), Code: CodeFor(err)}
}

func (r Response) Failed() bool {
	return r.Error != "" || r.Code != ""
}

// DecodeRequest parses a request payload and checks its shape.
func DecodeRequest(payload []byte) (Request, error) {
	var req Request
	if err := json.Unmarshal(payload, &req); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if err := req.Check(); err != nil {
		return req, err
	}
	return req, nil
}

func DecodeResponse(payload []byte) (Response, error) {
	var resp Response
	if err := json.Unmarshal(payload, &resp); err != nil {
		return Response{}, fmt.Errorf("%w: response: %v", ErrDecode, err)
	}
	return resp, nil
}

func WriteRequest(w io.Writer, req Request, limits Limits) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("protocol: encode request: %w", err)
	}
	return WriteFrame(w, Frame{Payload: payload}, limits)
}

// ReadRequest reads one frame and decodes it. A decoded request is returned
// alongside a shape error so callers can still log the action.
func ReadRequest(r io.Reader, limits Limits) (Request, error) {
	f, err := ReadFrame(r, limits)
	if err != nil {
		return Request{}, err
	}
	if f.Header.Flags&FlagResponse != 0 {
		return Request{}, fmt.Errorf("%w: response frame sent as request", ErrDecode)
	}
	return DecodeRequest(f.Payload)
}

// EncodeResponse marshals resp. A reply larger than limits allows is
// swapped for a too_large failure so the peer still gets one message; the
// response actually encoded is returned.
func EncodeResponse(resp Response, limits Limits) (Response, []byte, error) {
	payload, err := json.Marshal(resp)
	if err != nil {
		return resp, nil, fmt.Errorf("protocol: encode response: %w", err)
	}
	if uint64(len(payload)) <= uint64(limits.MaxPayloadBytes) {
		return resp, payload, nil
	}
	resp = ErrorResponse(fmt.Errorf("%w: %d bytes exceeds the %d byte limit",
		ErrResponseTooLarge, len(payload), limits.MaxPayloadBytes))
	payload, err = json.Marshal(resp)
	if err != nil {
		return resp, nil, fmt.Errorf("protocol: encode response: %w", err)
	}
	return resp, payload, nil
}

// WriteResponse frames resp and returns what was written, which differs
// from resp when the reply had to be replaced by a too_large failure.
func WriteResponse(w io.Writer, resp Response, limits Limits) (Response, error) {
	sent, payload, err := EncodeResponse(resp, limits)
	if err != nil {
		return sent, err
	}
	flags := FlagResponse
	if sent.Failed() {
		flags |= FlagError
	}
	return sent, WriteFrame(w, Frame{Header: Header{Flags: flags}, Payload: payload}, limits)
}

func ReadResponse(r io.Reader, limits Limits) (Response, error) {
	f, err := ReadFrame(r, limits)
	if err != nil {
		return Response{}, err
	}
	if f.Header.Flags&FlagResponse == 0 {
		return Response{}, fmt.Errorf("%w: expected response frame", ErrDecode)
	}
	return DecodeResponse(f.Payload)
}
