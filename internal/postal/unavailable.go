//go:build !libpostal

package postal

// New reports ErrUnavailable; build with -tags libpostal to enable it.
func New() (Parser, error) {
	return nil, ErrUnavailable
}
