package mq

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sapplex-sz/save-me-app/config"
)

var (
	conn     *amqp.Connection
	connOnce sync.Once
	connErr  error
)

const (
	// DelayedExchange 延迟消息交换机，依赖 rabbitmq_delayed_message_exchange 插件
	DelayedExchange = "scheduler.delayed"

	// DeadlineCheckQueue 活动超时检查队列，routing key 与队列同名
	DeadlineCheckQueue = "scheduler.activity.deadline_check"
)

func Init() error {
	connOnce.Do(func() {
		url := config.Cfg.GetRabbitMQURL()
		conn, connErr = amqp.Dial(url)
		if connErr != nil {
			return
		}

		connErr = declareTopology()
	})

	return connErr
}

func Connection() *amqp.Connection {
	return conn
}

func Close(ctx context.Context) error {
	if conn == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- conn.Close()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

// declareTopology 声明交换机、队列和绑定，幂等
func declareTopology() error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel for topology: %w", err)
	}
	defer ch.Close()

	err = ch.ExchangeDeclare(
		DelayedExchange,
		"x-delayed-message",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		amqp.Table{"x-delayed-type": "topic"},
	)
	if err != nil {
		return fmt.Errorf("failed to declare delayed exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		DeadlineCheckQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to declare deadline check queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, DeadlineCheckQueue, DelayedExchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind deadline check queue: %w", err)
	}

	return nil
}
