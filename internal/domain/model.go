package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is what a store returns when no record matches.
var ErrNotFound = errors.New("record not found")

// Model carries the identity and bookkeeping columns every persisted entity shares.
type Model struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CreatedAt time.Time `gorm:"not null;index" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null" json:"-"`
}

// AssignID gives a new entity its identity before the first insert.
func (m *Model) AssignID() {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
}

func (m *Model) GetID() uuid.UUID {
	return m.ID
}

func (m *Model) SetID(id uuid.UUID) {
	m.ID = id
}
