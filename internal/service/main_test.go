package service

import (
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/sapplex-sz/save-me-app/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.Logger = zap.NewNop()
	os.Exit(m.Run())
}
