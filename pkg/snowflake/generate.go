package snowflake

// 生成 MQ 消息 ID 等全局唯一 ID。
// node ID 由 dataCenterID 和 machineID 各 5 位拼成，两者取值 0~31。

import (
	"errors"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once

	errNodeIDOutOfRange = errors.New("snowflake machine/datacenter id out of range (0~31)")
	errNotInitialized   = errors.New("snowflake node is not initialized")
)

func Init(machineID, dataCenterID int64) error {
	var initErr error

	once.Do(func() {
		if machineID < 0 || machineID > 31 || dataCenterID < 0 || dataCenterID > 31 {
			initErr = errNodeIDOutOfRange
			return
		}

		n, err := snowflake.NewNode(dataCenterID<<5 | machineID)
		if err != nil {
			initErr = err
			return
		}
		node = n
	})

	return initErr
}

func NextID() (int64, error) {
	if node == nil {
		return 0, errNotInitialized
	}
	return node.Generate().Int64(), nil
}
