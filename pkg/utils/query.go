package utils

import (
	"fmt"
	"net/http"
	"strconv"
)

// QueryInt reads an integer query parameter, returning def when it is absent.
func QueryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

// PageParams reads the limit and skip query parameters. Zero limit means the
// caller's default.
func PageParams(r *http.Request) (limit, skip int, err error) {
	if limit, err = QueryInt(r, "limit", 0); err != nil {
		return 0, 0, err
	}
	if skip, err = QueryInt(r, "skip", 0); err != nil {
		return 0, 0, err
	}
	return limit, skip, nil
}
