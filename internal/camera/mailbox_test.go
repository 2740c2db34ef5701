package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMailboxSingleFrame(t *testing.T) {
	var mb frameMailbox

	assert.Nil(t, mb.take())

	f1 := &Frame{Seq: 1}
	assert.True(t, mb.put(f1), "first put schedules a delivery")
	assert.Same(t, f1, mb.take())
	assert.Nil(t, mb.take())
	assert.Equal(t, uint64(0), mb.drops())
}

func TestMailboxReplacesUndelivered(t *testing.T) {
	var mb frameMailbox

	assert.True(t, mb.put(&Frame{Seq: 1}))
	assert.False(t, mb.put(&Frame{Seq: 2}), "second put rides the pending delivery")
	assert.False(t, mb.put(&Frame{Seq: 3}))

	f := mb.take()
	assert.Equal(t, uint64(3), f.Seq)
	assert.Equal(t, uint64(2), mb.drops())

	// Next frame schedules again.
	assert.True(t, mb.put(&Frame{Seq: 4}))
}

func TestMailboxDrainLeavesScheduleIntact(t *testing.T) {
	var mb frameMailbox

	assert.True(t, mb.put(&Frame{Seq: 1}))
	mb.drain()
	assert.Nil(t, mb.take(), "drained frame must not be delivered")

	// take cleared the schedule flag, so a new frame schedules again.
	assert.True(t, mb.put(&Frame{Seq: 2}))

	mb.reset()
	assert.Equal(t, uint64(0), mb.drops())
	assert.Nil(t, mb.take())
}
