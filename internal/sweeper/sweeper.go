package sweeper

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"dropmail/backend/internal/monitoring"
	"dropmail/backend/internal/pool"
	"dropmail/backend/internal/storage"
	"dropmail/backend/internal/storage/filesystem"
)

// ErrSweepInProgress 上一轮清理尚未结束。
var ErrSweepInProgress = errors.New("sweep already in progress")

// Sweeper 按固定周期删除超出保留窗口的邮件及其附件。
//
// 每轮清理先从存储层整体取出并删除过期记录，再并发删除附件文件。
// 文件删除是幂等的尽力而为：单个文件失败只记日志和指标，
// 不会中断整轮清理，也不会留下可见的邮件记录。
type Sweeper struct {
	messages storage.MessageRepository
	files    *filesystem.Store
	maxAge   time.Duration
	interval time.Duration
	workers  int
	metrics  *monitoring.Metrics
	log      *zap.Logger
	running  atomic.Bool
}

// New 创建清理任务。metrics 可以为 nil。
func New(
	messages storage.MessageRepository,
	files *filesystem.Store,
	maxAge time.Duration,
	interval time.Duration,
	workers int,
	metrics *monitoring.Metrics,
	log *zap.Logger,
) *Sweeper {
	if workers <= 0 {
		workers = 1
	}
	return &Sweeper{
		messages: messages,
		files:    files,
		maxAge:   maxAge,
		interval: interval,
		workers:  workers,
		metrics:  metrics,
		log:      log,
	}
}

// Run 以固定间隔循环执行清理，直到 ctx 被取消。
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info("expiry sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("max_age", s.maxAge),
	)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("expiry sweeper stopped")
			return nil
		case <-ticker.C:
			if _, err := s.SweepOnce(ctx); err != nil && !errors.Is(err, ErrSweepInProgress) {
				s.log.Error("sweep run failed", zap.Error(err))
			}
		}
	}
}

// SweepOnce 执行一轮清理，返回删除的邮件数量。
// 同一时刻只允许一轮在跑，重入时返回 ErrSweepInProgress。
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	if !s.running.CompareAndSwap(false, true) {
		return 0, ErrSweepInProgress
	}
	defer s.running.Store(false)

	cutoff := time.Now().UTC().Add(-s.maxAge)
	deleted, err := s.messages.DeleteExpired(cutoff)
	if err != nil {
		return 0, err
	}

	if s.metrics != nil {
		s.metrics.SweepRuns.Inc()
	}
	if len(deleted) == 0 {
		return 0, nil
	}

	// 附件删除并发执行，单个失败不影响其它文件
	workerPool := pool.NewWorkerPool(s.workers, len(deleted))
	workerPool.Start(ctx)
	for _, message := range deleted {
		refs := message.Attachments
		workerPool.Submit(func() {
			for _, ref := range refs {
				if err := s.files.Delete(ref.StoredName); err != nil {
					s.log.Warn("failed to delete expired attachment",
						zap.String("stored_name", ref.StoredName),
						zap.Error(err),
					)
					if s.metrics != nil {
						s.metrics.SweepFileErrors.Inc()
					}
				}
			}
		})
	}
	workerPool.Stop()

	if s.metrics != nil {
		s.metrics.MessagesSwept.Add(float64(len(deleted)))
	}
	s.log.Info("sweep run completed",
		zap.Int("deleted", len(deleted)),
		zap.Time("cutoff", cutoff),
	)
	return len(deleted), nil
}
