package db

import (
	"errors"

	"github.com/lib/pq"
)

var (
	ErrDuplicate  = errors.New("db: duplicate key")
	ErrForeignKey = errors.New("db: referenced row does not exist")
)

// translate maps Postgres constraint violations onto the package errors.
func translate(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23505":
		return ErrDuplicate
	case "23503":
		return ErrForeignKey
	}
	return err
}
