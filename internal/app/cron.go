package app

import (
	"context"
	"time"

	"github.com/famedu/core/internal/modules/verification"
	pkgcron "github.com/famedu/core/internal/pkg/cron"
	"github.com/famedu/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, verifySvc *verification.Service, taskSvc *taskqueue.Service, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:        "prune_verification_codes",
		Description: "清理过期的短信验证码",
		Interval:    time.Hour,
		Fn: func(ctx context.Context) error {
			if err := verifySvc.PruneExpired(); err != nil {
				cronLogger.Warn("清理验证码失败", zap.Error(err))
				return err
			}
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:        "cleanup_finished_tasks",
		Description: "清理 7 天以上已结束的生成任务记录",
		Interval:    24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := time.Now().AddDate(0, 0, -7).UnixMilli()
			if err := taskSvc.DeleteFinished(ctx, cutoff); err != nil {
				cronLogger.Warn("清理生成任务记录失败", zap.Error(err))
				return err
			}
			return nil
		},
	})
}
