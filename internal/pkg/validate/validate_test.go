package validate

import (
	"testing"

	"github.com/nexus-wa-bridge/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestStruct_VerifyRequest(t *testing.T) {
	assert.NoError(t, Struct(&domain.VerifyRequest{Numbers: []string{"11 91234-5678"}}))
	assert.NoError(t, Struct(&domain.VerifyRequest{Numbers: []string{}}), "an empty batch is valid")

	err := Struct(&domain.VerifyRequest{})
	assert.EqualError(t, err, "field 'numbers' failed 'required'")
}
