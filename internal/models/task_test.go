package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskState_Terminal(t *testing.T) {
	assert.False(t, TaskStateCreated.Terminal())
	assert.False(t, TaskStateProcessing.Terminal())
	assert.True(t, TaskStateCompleted.Terminal())
	assert.True(t, TaskStateFailed.Terminal())
}
