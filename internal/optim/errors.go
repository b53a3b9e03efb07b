package optim

import "errors"

var (
	ErrInvalidBounds = errors.New("optim: invalid search bounds")
	ErrBudget        = errors.New("optim: search budget exhausted")
)
