package models

import "time"

// Record is a row in the client's local history store.
type Record interface {
	ID() string
	Sequence() int // human-readable position, assigned on insert
	CreatedAt() time.Time
	Validate() error
}

// Store persists one kind of [Record]. Deletes are soft: Get and List skip deleted rows.
type Store[T Record] interface {
	Create(record T) error
	Get(id string) (T, error)
	Update(record T) error
	Delete(id string) error
	DeleteAll() (int64, error)
	List(criteria map[string]any) ([]T, error)
}
