package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoomTableAddRemove(t *testing.T) {
	rt := newRoomTable()

	rt.add("den", "u1")
	rt.add("den", "u2")
	assert.True(t, rt.exists("den"))
	assert.Equal(t, []string{"u1", "u2"}, rt.members("den"))
	assert.True(t, rt.contains("den", "u1"))

	assert.False(t, rt.remove("den", "u1"))
	assert.True(t, rt.remove("den", "u2"), "removing last member deletes the room")
	assert.False(t, rt.exists("den"))
	assert.Empty(t, rt.members("den"))
	assert.Zero(t, rt.size())
}

func TestRoomTableRemoveUnknown(t *testing.T) {
	rt := newRoomTable()
	assert.False(t, rt.remove("nope", "u1"))
	assert.False(t, rt.contains("nope", "u1"))
}

func TestRoomTableMembersSorted(t *testing.T) {
	rt := newRoomTable()
	for _, id := range []string{"zed", "amy", "mid"} {
		rt.add("den", id)
	}
	assert.Equal(t, []string{"amy", "mid", "zed"}, rt.members("den"))
}
