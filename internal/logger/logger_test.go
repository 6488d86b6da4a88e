package logger_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/carpool-identity/internal/logger"
)

func TestMaskPhone(t *testing.T) {
	require.Equal(t, "*******001", logger.MaskPhone("0900000001"))
	require.Equal(t, "***", logger.MaskPhone("12"))
	require.Equal(t, "***", logger.MaskPhone(""))
}

func TestNew(t *testing.T) {
	require.NotNil(t, logger.New("debug"))
	require.NotNil(t, logger.New("info"))
}
