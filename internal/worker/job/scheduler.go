package job

import (
	"context"
	"sync"
	"time"

	"web3-royalty/internal/worker/monitor"

	"go.uber.org/zap"
)

// JobFunc 定义作业执行函数
type JobFunc func(ctx context.Context) error

// Scheduler 作业调度器，作业按注册顺序启动
type Scheduler struct {
	jobs    []*ScheduledJob
	running bool
	mu      sync.Mutex
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	logger  *zap.Logger
}

// ScheduledJob interval 为 0 表示只运行一次
type ScheduledJob struct {
	name     string
	interval time.Duration
	fn       JobFunc
}

func (j *ScheduledJob) once() bool {
	return j.interval <= 0
}

// NewScheduler 创建调度器
func NewScheduler(logger *zap.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// RegisterJob 注册周期作业，启动时立即运行一次
func (s *Scheduler) RegisterJob(name string, interval time.Duration, fn JobFunc) {
	s.register(&ScheduledJob{name: name, interval: interval, fn: fn})
	s.logger.Info("Registered job", zap.String("job", name), zap.Duration("interval", interval))
}

// RegisterOnceJob 注册只运行一次的作业
func (s *Scheduler) RegisterOnceJob(name string, fn JobFunc) {
	s.register(&ScheduledJob{name: name, fn: fn})
	s.logger.Info("Registered once job", zap.String("job", name))
}

func (s *Scheduler) register(job *ScheduledJob) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.jobs {
		if existing.name == job.name {
			s.jobs[i] = job
			return
		}
	}
	s.jobs = append(s.jobs, job)
}

// Start 启动调度器
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	for _, job := range s.jobs {
		s.wg.Add(1)
		go func(j *ScheduledJob) {
			defer s.wg.Done()
			s.runJob(ctx, j)
		}(job)
	}
}

// Stop 取消所有作业并等待退出，ctx 到期后不再等待
func (s *Scheduler) Stop(ctx context.Context) {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.logger.Warn("Stopping scheduler...")

	waitCh := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(waitCh)
	}()

	select {
	case <-waitCh:
		s.logger.Info("All jobs stopped successfully")
	case <-ctx.Done():
		s.logger.Warn("Context deadline exceeded while waiting for jobs to stop")
	}
}

func (s *Scheduler) runJob(ctx context.Context, job *ScheduledJob) {
	s.logger.Info("Running job", zap.String("job", job.name), zap.Bool("once", job.once()))
	s.executeJob(ctx, job)
	if job.once() {
		return
	}

	ticker := time.NewTicker(job.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.executeJob(ctx, job)
		case <-ctx.Done():
			s.logger.Info("Stopping job", zap.String("job", job.name))
			return
		}
	}
}

// executeJob 执行作业并记录结果，周期作业最多占用半个周期
func (s *Scheduler) executeJob(ctx context.Context, job *ScheduledJob) {
	var (
		jobCtx context.Context
		cancel context.CancelFunc
	)
	if job.once() {
		jobCtx, cancel = context.WithCancel(ctx)
	} else {
		jobCtx, cancel = context.WithTimeout(ctx, job.interval/2)
	}
	defer cancel()

	startTime := time.Now()
	err := job.fn(jobCtx)
	elapsed := time.Since(startTime)
	monitor.JobDuration.WithLabelValues(job.name).Observe(elapsed.Seconds())

	if err != nil {
		monitor.JobExecutions.WithLabelValues(job.name, "error").Inc()
		s.logger.Error("Job execution failed",
			zap.String("job", job.name),
			zap.Error(err),
			zap.Duration("duration", elapsed))
		return
	}
	monitor.JobExecutions.WithLabelValues(job.name, "ok").Inc()
	s.logger.Debug("Job execution completed",
		zap.String("job", job.name),
		zap.Duration("duration", elapsed))
}
