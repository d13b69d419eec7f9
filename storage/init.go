package storage

import (
	"github.com/sapplex-sz/save-me-app/storage/database"
	"github.com/sapplex-sz/save-me-app/storage/mq"
	"github.com/sapplex-sz/save-me-app/storage/redis"
)

// 统一 init storage 层

func Init() error {
	if err := database.Init(); err != nil {
		return err
	}

	if err := redis.Init(); err != nil {
		return err
	}

	if err := mq.Init(); err != nil {
		return err
	}

	return nil
}
