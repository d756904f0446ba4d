//go:build !libpostal

package postal

import (
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestNewUnavailable(t *testing.T) {
	p, err := New()
	assert.Nil(t, p)
	assert.True(t, eris.Is(err, ErrUnavailable))
}
