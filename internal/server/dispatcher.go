package server

import (
	"github.com/arcanaland/grimoire/internal/card"
	"github.com/arcanaland/grimoire/internal/protocol"
	"github.com/rs/zerolog/log"
)

// Store is the collection surface the dispatcher drives.
type Store interface {
	Add(c card.Card) error
	Update(c card.Card) error
	Delete(user string, id int) error
	Show(user string, id int) (card.Card, error)
	ShowAll(user string) ([]card.Card, error)
	Modify(user string, id int, field, value string) (card.Card, error)
}

// Dispatcher maps one decoded request to exactly one store call. It keeps
// no state between requests.
type Dispatcher struct {
	store Store
}

func NewDispatcher(store Store) *Dispatcher {
	return &Dispatcher{store: store}
}

// Dispatch never returns an error; failures travel in the response.
func (d *Dispatcher) Dispatch(req protocol.Request) protocol.Response {
	if err := req.Check(); err != nil {
		log.Warn().Str("action", string(req.Action)).Err(err).Msg("request rejected")
		return protocol.ErrorResponse(err)
	}

	user, id := req.Key()
	switch req.Action {
	case protocol.ActionAdd:
		if err := d.store.Add(*req.Card); err != nil {
			return protocol.ErrorResponse(err)
		}
		return protocol.OK()
	case protocol.ActionUpdate:
		if err := d.store.Update(*req.Card); err != nil {
			return protocol.ErrorResponse(err)
		}
		return protocol.OK()
	case protocol.ActionDelete:
		if err := d.store.Delete(user, id); err != nil {
			return protocol.ErrorResponse(err)
		}
		return protocol.OK()
	case protocol.ActionShow:
		c, err := d.store.Show(user, id)
		if err != nil {
			return protocol.ErrorResponse(err)
		}
		return protocol.CardResponse(c)
	case protocol.ActionShowAll:
		cards, err := d.store.ShowAll(user)
		if err != nil {
			return protocol.ErrorResponse(err)
		}
		return protocol.ListResponse(cards)
	case protocol.ActionModify:
		c, err := d.store.Modify(user, id, req.Field, string(req.Value))
		if err != nil {
			return protocol.ErrorResponse(err)
		}
		return protocol.CardResponse(c)
	}
	// unreachable: Check rejects every other action
	return protocol.ErrorResponse(protocol.ErrUnknownAction)
}

// outcome labels a response for metrics
func outcome(resp protocol.Response) string {
	if resp.Failed() {
		return string(resp.Code)
	}
	return "ok"
}
