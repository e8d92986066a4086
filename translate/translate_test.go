package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("bad opcode x3", From("bad opcode x%X", 3))
	assert.Equal("plain", From("plain"))
	assert.NotNil(Printer())
	assert.Same(Printer(), Printer())
}
