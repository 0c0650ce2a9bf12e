package storage

import (
	"context"

	"cpamm/internal/model"
)

// Journal defines a sink for executed pool actions.
type Journal interface {
	PutActions(ctx context.Context, records []model.ActionRecord) error
}
