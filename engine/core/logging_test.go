package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstallLoggerIsIdempotentInstall(t *testing.T) {
	// the singleton may already be installed by another test or by lazy
	// initialization; either way a further install must refuse
	first := InstallLogger(LoggerOptions{Level: "info"})
	if first != nil {
		assert.Equal(t, AlreadyExistsError, CodeOf(first))
	}

	second := InstallLogger(LoggerOptions{Level: "debug"})
	assert.Equal(t, AlreadyExistsError, CodeOf(second))
}

func TestParseLevelFallsBackToDebug(t *testing.T) {
	assert.Equal(t, parseLevel("info"), parseLevel("INFO"))
	assert.Equal(t, parseLevel("debug"), parseLevel("nonsense"))
}
