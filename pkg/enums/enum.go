// Package enums holds the closed string sets stored in the database and
// accepted over the API.
package enums

import (
	"fmt"
	"slices"
)

// parse matches value exactly against the allowed set. label names the set
// in the error.
func parse[T ~string](allowed []T, value, label string) (T, error) {
	if i := slices.Index(allowed, T(value)); i >= 0 {
		return allowed[i], nil
	}
	return "", fmt.Errorf("invalid %s %q", label, value)
}
