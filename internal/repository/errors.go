package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// Sentinel errors returned by repositories. Services translate these into
// caller-facing domain errors.
var (
	ErrNotFound        = errors.New("record not found")
	ErrAttachmentQuota = errors.New("attachment quota reached")
)

// translate maps driver-level errors onto repository sentinels.
func translate(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
