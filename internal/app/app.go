package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"pictor/internal/config"
	"pictor/internal/gateway/provider"
	"pictor/internal/logger"
	"pictor/internal/pipeline"
	"pictor/internal/scheduler"
	"pictor/internal/store/runlog"
	apihttp "pictor/internal/transport/http"
)

// 中文说明：
// 应用级编排：加载配置→初始化依赖→启动 HTTP 服务、预设热加载与日志清理。

// App 持有全部已装配的服务。
type App struct {
	cfg      *config.Config
	runner   *pipeline.Runner
	registry *provider.Registry
	store    *runlog.Store
	httpSrv  *apihttp.Server
	Summary  *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。
func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	return buildAppWithWire(context.Background(), cfg)
}

// Run 启动全部常驻服务，任一出错即整体退出。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	if a.httpSrv == nil {
		return fmt.Errorf("http server not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := a.httpSrv.Start(ctx); err != nil {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	})

	if path := a.cfg.Providers.PresetsPath; path != "" {
		group.Go(func() error {
			if err := provider.Watch(ctx, path, a.registry); err != nil {
				logger.Warnf("预设热加载退出: %v", err)
			}
			return nil
		})
	}

	if a.store != nil && a.cfg.Store.RetentionDays > 0 {
		group.Go(func() error {
			a.startRetention(ctx)
			return nil
		})
	}

	err := group.Wait()
	if a.store != nil {
		if cerr := a.store.Close(); cerr != nil {
			logger.Warnf("关闭运行日志存储失败: %v", cerr)
		}
	}
	return err
}

// Runner 暴露流水线入口（测试与回放用）。
func (a *App) Runner() *pipeline.Runner {
	if a == nil {
		return nil
	}
	return a.runner
}

// startRetention 每日零点后十分钟清理过期运行记录。
func (a *App) startRetention(ctx context.Context) {
	sched := scheduler.NewAlignedScheduler(ctx, "runlog-prune", 24*time.Hour, 10*time.Minute)
	sched.RunImmediately = true
	sched.Start(func() {
		pruneCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		removed, err := a.store.Prune(pruneCtx, a.cfg.Store.RetentionDays)
		if err != nil {
			logger.Warnf("运行日志清理失败: %v", err)
			return
		}
		if removed > 0 {
			logger.Infof("运行日志清理完成: 删除 %d 次运行", removed)
		}
	})
}
