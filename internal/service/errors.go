package service

import (
	"errors"
	"fmt"

	"ameenhub/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	// ErrNotFound marks an unknown user, role or permission id.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput marks malformed ids or payload values.
	ErrInvalidInput = errors.New("invalid input")
	// ErrSystemProtected marks an attempt to delete a built-in role or user.
	ErrSystemProtected = errors.New("system record is protected")
	// ErrIntegrity marks a uniqueness violation the mutators should have
	// made impossible.
	ErrIntegrity = errors.New("data integrity violation")
	// ErrConflict marks a duplicate username, email or role code.
	ErrConflict = errors.New("already exists")
	// ErrUnauthenticated marks bad credentials or an unusable refresh token.
	ErrUnauthenticated = errors.New("invalid credentials")
)

func parseID(kind, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s id '%s'", ErrInvalidInput, kind, raw)
	}
	return id, nil
}

// parseIDs parses and de-duplicates, keeping first-seen order.
func parseIDs(kind string, raw []string) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{}, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := parseID(kind, r)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseActor turns an optional acting user id into a nullable column value.
func parseActor(raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := parseID("actor", raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// notFoundOr maps gorm's record-not-found to ErrNotFound and wraps anything
// else as an infrastructure failure.
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("failed to load %s: %w", what, err)
}

// integrityOr maps a duplicate-key error to ErrIntegrity.
func integrityOr(err error, msg string) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("%w: %s: %v", ErrIntegrity, msg, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// pageParams applies the listing defaults shared with the HTTP layer.
func pageParams(page, limit int) pagination.Params {
	if page < 1 {
		page = pagination.DefaultPage
	}
	if limit < 1 {
		limit = pagination.DefaultLimit
	}
	if limit > pagination.MaxLimit {
		limit = pagination.MaxLimit
	}
	return pagination.New(page, limit)
}
