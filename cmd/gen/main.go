package main

import (
	"github.com/sapplex-sz/save-me-app/internal/repository"
	"github.com/sapplex-sz/save-me-app/pkg/logger"
)

func main() {
	logger.Init()
	defer logger.Sync()

	repository.RunGenerate()
}
