package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateStage(t *testing.T) {
	for _, stage := range workOrderStages {
		assert.NoError(t, validateStage(stage))
	}

	assert.Error(t, validateStage("shipped"))
	assert.Error(t, validateStage(""))
	assert.Error(t, validateStage("Intake"), "stages are lowercase")
}
