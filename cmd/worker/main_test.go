package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/catalog/internal/app"
	_ "github.com/odyssey-erp/catalog/internal/testing/guard"
)

func TestMainSkipsInTestMode(t *testing.T) {
	app.RefreshTestMode()
	require.True(t, app.InTestMode())

	require.NotPanics(t, main)
}
