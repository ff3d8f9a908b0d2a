package portal

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaxonomyKindsStayDistinguishable(t *testing.T) {
	assert.True(t, errors.Is(Validationf("content required"), ErrValidation))
	assert.True(t, errors.Is(NotFoundf("file %s", "f1"), ErrNotFound))
	assert.True(t, errors.Is(Storagef("insert", errors.New("conn refused")), ErrStorage))

	assert.False(t, errors.Is(NotFoundf("x"), ErrValidation))
	assert.False(t, errors.Is(Validationf("x"), ErrNotFound))
}

func TestWrappedKindsSurviveFurtherWrapping(t *testing.T) {
	err := fmt.Errorf("handling upload: %w", Validationf("content required"))
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestExternalProcessErrorCarriesDiagnostics(t *testing.T) {
	cause := errors.New("exit status 1")
	err := &ExternalProcessError{Op: "attendance", Stderr: "boom", Err: cause}

	assert.True(t, IsExternalProcessError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "attendance")
	assert.Contains(t, err.Error(), "boom")
}
