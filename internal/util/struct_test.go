package util_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github/chapool/go-gasless/internal/util"
)

type components struct {
	Name    string
	Values  []int
	Skipped *int `wire:"-"`
	hidden  *int
}

func TestIsStructInitialized(t *testing.T) {
	err := util.IsStructInitialized(&components{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Name, Values")
	assert.NotContains(t, err.Error(), "Skipped")

	require.NoError(t, util.IsStructInitialized(components{Name: "x", Values: []int{1}}))

	var nilPtr *components
	require.Error(t, util.IsStructInitialized(nilPtr))
	require.ErrorIs(t, util.IsStructInitialized(42), util.ErrNotAStruct)
}
