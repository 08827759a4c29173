package validators

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/marcvidal/eventstock-backend/pkg/errors"
	pkgpagination "github.com/marcvidal/eventstock-backend/pkg/pagination"
)

// DateLayout is the wire format for calendar dates. Rental windows are
// whole days; time components are never accepted.
const DateLayout = "2006-01-02"

func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be numeric").WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// ParseQueryDate reads an optional YYYY-MM-DD query parameter. A missing
// value returns nil.
func ParseQueryDate(r *http.Request, key string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	value, err := time.Parse(DateLayout, raw)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a YYYY-MM-DD date").WithDetails(map[string]any{"field": key})
	}
	return &value, nil
}

// ParseQueryUUID reads an optional uuid query parameter. A missing value
// returns uuid.Nil.
func ParseQueryUUID(r *http.Request, key string) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "query parameter must be a uuid").WithDetails(map[string]any{"field": key})
	}
	return id, nil
}

// ParsePagination reads the shared limit/cursor pair used by every list
// endpoint.
func ParsePagination(r *http.Request) (pkgpagination.Params, error) {
	limit, err := ParseQueryInt(r, "limit", 0, 1, pkgpagination.MaxLimit)
	if err != nil {
		return pkgpagination.Params{}, err
	}
	return pkgpagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}
