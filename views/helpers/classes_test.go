package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClasses_LaterWins(t *testing.T) {
	assert.Equal(t, "text-lg p-4", Classes("p-6 text-lg", "p-4"))
}

func TestClasses_KeepsNonConflicting(t *testing.T) {
	assert.Equal(t, "flex flex-col items-center", Classes("flex flex-col", "items-center"))
}
