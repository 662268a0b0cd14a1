package routes

import (
	"errors"

	"github.com/casegraph/backend/pkg/store"
)

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
