package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sconzo/lalur-sub001/internal/app"
	_ "github.com/Sconzo/lalur-sub001/testing"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	assert.True(t, app.InTestMode())
	assert.NotPanics(t, main)
}
