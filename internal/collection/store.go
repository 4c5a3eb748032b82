package collection

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/arcanaland/grimoire/internal/card"
	"github.com/arcanaland/grimoire/internal/validator"
	"github.com/rs/zerolog/log"
)

// Store persists cards as one JSON file per card under root/<user>/<id>.json.
// Nothing is cached between calls; every operation reads the filesystem.
type Store struct {
	root     string
	locks    *keyLocks
	attempts int
	backoff  *Backoff
	sleep    func(time.Duration)
}

type Option func(*Store)

// WithRetry bounds how often a transient filesystem failure is retried.
func WithRetry(attempts int, base, max time.Duration) Option {
	return func(s *Store) {
		if attempts < 1 {
			attempts = 1
		}
		s.attempts = attempts
		s.backoff = NewBackoff(base, max, 0.2)
	}
}

// NewStore constructs a store rooted at root. The root and the per-user
// directories are created lazily on the first add.
func NewStore(root string, opts ...Option) *Store {
	resolved := strings.TrimSpace(root)
	if resolved == "" {
		resolved = filepath.Join("local", "collections")
	}
	s := &Store{
		root:     resolved,
		locks:    newKeyLocks(),
		attempts: 3,
		backoff:  NewBackoff(25*time.Millisecond, 250*time.Millisecond, 0.2),
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the directory holding one container per user
func (s *Store) Root() string {
	return s.root
}

// Add stores a new card. It fails with ErrAlreadyExists if (user, id) is taken.
func (s *Store) Add(c card.Card) error {
	if err := validator.Check(c); err != nil {
		return err
	}
	unlock := s.locks.lock(lockKey(c.User, c.ID))
	defer unlock()

	path := s.cardPath(c.User, c.ID)
	found, err := s.exists(path)
	if err != nil {
		return err
	}
	if found {
		return fmt.Errorf("%w: user=%s id=%d", ErrAlreadyExists, c.User, c.ID)
	}
	if err := s.retry("provision", func() error { return s.provision(c.User) }); err != nil {
		return err
	}
	if err := s.retry("write", func() error { return writeCardFile(path, c) }); err != nil {
		return err
	}
	log.Debug().Str("user", c.User).Int("id", c.ID).Msg("card added")
	return nil
}

// Update overwrites an existing card in one atomic replace.
func (s *Store) Update(c card.Card) error {
	if err := validator.Check(c); err != nil {
		return err
	}
	unlock := s.locks.lock(lockKey(c.User, c.ID))
	defer unlock()

	path := s.cardPath(c.User, c.ID)
	found, err := s.exists(path)
	if err != nil {
		return err
	}
	if !found {
		return notFound(c.User, c.ID)
	}
	if err := s.retry("write", func() error { return writeCardFile(path, c) }); err != nil {
		return err
	}
	log.Debug().Str("user", c.User).Int("id", c.ID).Msg("card updated")
	return nil
}

// Delete removes a card irrevocably.
func (s *Store) Delete(user string, id int) error {
	if err := validator.CheckKey(user, id); err != nil {
		return err
	}
	unlock := s.locks.lock(lockKey(user, id))
	defer unlock()

	path := s.cardPath(user, id)
	err := s.retry("remove", func() error {
		if err := os.Remove(path); err != nil {
			if os.IsNotExist(err) {
				return notFound(user, id)
			}
			return ioError("remove", path, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	log.Debug().Str("user", user).Int("id", id).Msg("card deleted")
	return nil
}

// Show returns the stored card for (user, id).
func (s *Store) Show(user string, id int) (card.Card, error) {
	if err := validator.CheckKey(user, id); err != nil {
		return card.Card{}, err
	}
	unlock := s.locks.lock(lockKey(user, id))
	defer unlock()
	return s.load(user, id)
}

// ShowAll returns every card of user ordered by id. A user without a
// collection gets an empty slice.
func (s *Store) ShowAll(user string) ([]card.Card, error) {
	if err := validator.CheckUser(user); err != nil {
		return nil, err
	}
	dir := s.userDir(user)

	var entries []os.DirEntry
	err := s.retry("readdir", func() error {
		var err error
		entries, err = os.ReadDir(dir)
		if err != nil && !os.IsNotExist(err) {
			return ioError("readdir", dir, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	cards := make([]card.Card, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, ok := parseCardFileName(entry.Name())
		if !ok {
			continue
		}
		var c card.Card
		err := s.retry("read", func() error {
			var err error
			c, err = readCardFile(filepath.Join(dir, entry.Name()))
			return err
		})
		if os.IsNotExist(err) {
			// deleted between ReadDir and the read
			continue
		}
		if err != nil {
			return nil, err
		}
		c.User, c.ID = user, id
		cards = append(cards, c)
	}
	sort.Slice(cards, func(i, j int) bool {
		return cards[i].ID < cards[j].ID
	})
	return cards, nil
}

// Modify sets a single attribute and rewrites the card. The edited card is
// revalidated as a whole, so an edit that breaks a subtype rule is rejected
// and the stored file stays untouched.
func (s *Store) Modify(user string, id int, field, value string) (card.Card, error) {
	if err := validator.CheckKey(user, id); err != nil {
		return card.Card{}, err
	}
	unlock := s.locks.lock(lockKey(user, id))
	defer unlock()

	current, err := s.load(user, id)
	if err != nil {
		return card.Card{}, err
	}
	edited := current.Clone()
	if err := edited.Set(field, value); err != nil {
		if errors.Is(err, ErrUnknownField) || errors.Is(err, ErrReadOnlyField) {
			return card.Card{}, err
		}
		return card.Card{}, fmt.Errorf("%w: %v", validator.ErrInvalid, err)
	}
	if err := validator.Check(edited); err != nil {
		return card.Card{}, err
	}

	path := s.cardPath(user, id)
	if err := s.retry("write", func() error { return writeCardFile(path, edited) }); err != nil {
		return card.Card{}, err
	}
	log.Debug().Str("user", user).Int("id", id).Str("field", field).Msg("card modified")
	return edited, nil
}

// load reads (user, id); the caller holds the key lock.
func (s *Store) load(user string, id int) (card.Card, error) {
	path := s.cardPath(user, id)
	var c card.Card
	err := s.retry("read", func() error {
		var err error
		c, err = readCardFile(path)
		return err
	})
	if os.IsNotExist(err) {
		return card.Card{}, notFound(user, id)
	}
	if err != nil {
		return card.Card{}, err
	}
	c.User, c.ID = user, id
	return c, nil
}

func (s *Store) exists(path string) (bool, error) {
	var found bool
	err := s.retry("stat", func() error {
		var err error
		found, err = statFile(path)
		return err
	})
	return found, err
}

// provision creates the user's container; repeated calls are no-ops.
func (s *Store) provision(user string) error {
	dir := s.userDir(user)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ioError("mkdir", dir, err)
	}
	return nil
}

func (s *Store) userDir(user string) string {
	return filepath.Join(s.root, user)
}

func (s *Store) cardPath(user string, id int) string {
	return filepath.Join(s.userDir(user), cardFileName(id))
}

func lockKey(user string, id int) string {
	return user + "/" + strconv.Itoa(id)
}

func notFound(user string, id int) error {
	return fmt.Errorf("%w: user=%s id=%d", ErrNotFound, user, id)
}
