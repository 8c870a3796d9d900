package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5"
)

// ErrContactNotFound is returned when a registered client has no record.
var ErrContactNotFound = errors.New("notify: contact not found")

// RowQuerier is the single pgx method the contact lookup needs.
type RowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresContacts reads registered clients from the clients table.
type PostgresContacts struct {
	db RowQuerier
}

func NewPostgresContacts(db RowQuerier) *PostgresContacts {
	return &PostgresContacts{db: db}
}

func (c *PostgresContacts) Contact(ctx context.Context, clientID string) (Contact, error) {
	var first, last, phone, email string
	err := c.db.QueryRow(ctx, `
		SELECT first_name, last_name, COALESCE(phone, ''), COALESCE(email, '')
		FROM clients
		WHERE id = $1`, clientID).Scan(&first, &last, &phone, &email)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contact{}, fmt.Errorf("%w: %s", ErrContactNotFound, clientID)
	}
	if err != nil {
		return Contact{}, fmt.Errorf("notify: load contact: %w", err)
	}
	return Contact{Name: strings.TrimSpace(first + " " + last), Phone: phone, Email: email}, nil
}

// ContactBook is an in-memory ContactResolver.
type ContactBook struct {
	mu       sync.RWMutex
	contacts map[string]Contact
}

func NewContactBook() *ContactBook {
	return &ContactBook{contacts: make(map[string]Contact)}
}

func (b *ContactBook) Put(clientID string, c Contact) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.contacts[clientID] = c
}

func (b *ContactBook) Contact(_ context.Context, clientID string) (Contact, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.contacts[clientID]
	if !ok {
		return Contact{}, fmt.Errorf("%w: %s", ErrContactNotFound, clientID)
	}
	return c, nil
}
