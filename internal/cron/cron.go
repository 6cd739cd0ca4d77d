package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
)

// Reconciler 全量重算聚合
type Reconciler interface {
	RecomputeAll(ctx context.Context) (int, error)
}

// CronManager 定时任务管理器
type CronManager struct {
	cron       *cron.Cron
	reconciler Reconciler
	spec       string
	timeout    time.Duration
	log        logger.Logger
}

// NewCronManager 创建定时任务管理器
func NewCronManager(reconciler Reconciler, spec string, timeout time.Duration, log logger.Logger) *CronManager {
	return &CronManager{
		cron:       cron.New(cron.WithLocation(time.Local)),
		reconciler: reconciler,
		spec:       spec,
		timeout:    timeout,
		log:        log,
	}
}

// Start 启动定时任务
// Cron格式: 分 时 日 月 周，默认 "0 3 * * *" 每天03:00
func (m *CronManager) Start() error {
	if _, err := m.cron.AddFunc(m.spec, m.runReconcile); err != nil {
		return err
	}

	m.cron.Start()
	m.log.Info("Cron manager started", logger.String("reconcile_spec", m.spec))
	return nil
}

// Stop 停止定时任务，等待正在运行的任务完成
func (m *CronManager) Stop() {
	ctx := m.cron.Stop()
	<-ctx.Done()
	m.log.Info("Cron manager stopped")
}

// RunReconcileNow 立即执行一次重算
func (m *CronManager) RunReconcileNow(ctx context.Context) (int, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}
	return m.reconciler.RecomputeAll(ctx)
}

func (m *CronManager) runReconcile() {
	start := time.Now()
	m.log.Info("Starting scheduled aggregate reconciliation")

	n, err := m.RunReconcileNow(context.Background())
	if err != nil {
		m.log.Error("Aggregate reconciliation failed", logger.Int("succeeded", n), logger.Err(err))
		return
	}
	m.log.Info("Aggregate reconciliation completed",
		logger.Int("movies", n),
		logger.Duration("duration", time.Since(start)),
	)
}
