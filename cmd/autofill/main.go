package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/carelink-dev/shift-board/engine/internal/config"
	"github.com/carelink-dev/shift-board/engine/internal/lock"
	"github.com/carelink-dev/shift-board/engine/internal/notify"
	"github.com/carelink-dev/shift-board/engine/internal/orchestrator"
	"github.com/carelink-dev/shift-board/engine/internal/repository"
	"github.com/carelink-dev/shift-board/engine/internal/scheduler"
	"github.com/carelink-dev/shift-board/engine/internal/store"
	"github.com/carelink-dev/shift-board/engine/internal/utils"
)

func main() {
	var (
		facilityID int64
		weekStart  string
		clearWeek  bool
		review     bool
		sendMail   bool
		localLock  bool
		operator   string
	)

	flag.Int64Var(&facilityID, "facility", 0, "机构 ID")
	flag.StringVar(&weekStart, "week", "", "周起始日期 (YYYY-MM-DD)")
	flag.BoolVar(&clearWeek, "clear", false, "自动排班前先清空本周所有班次")
	flag.BoolVar(&review, "review", false, "只复查本周冲突，不做任何修改")
	flag.BoolVar(&sendMail, "notify", false, "通过 RabbitMQ 发送排班通知")
	flag.BoolVar(&localLock, "local-lock", false, "使用进程内锁而不是 redis")
	flag.StringVar(&operator, "operator", "", "接收自动排班汇总邮件的地址")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if facilityID <= 0 {
		logger.Error("请通过 -facility 指定机构")
		os.Exit(2)
	}
	if err := utils.ValidateWeekStart(weekStart); err != nil {
		logger.Error("周起始日期无效", "error", err)
		os.Exit(2)
	}

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if cfg.Backend.Token == "" {
		logger.Error("BACKEND_TOKEN 不能为空")
		os.Exit(1)
	}

	ctx := context.Background()
	repo := repository.NewRepository(cfg, &http.Client{})
	st := store.New(repo, facilityID, weekStart)
	if _, err := st.Refresh(ctx); err != nil {
		logger.Error("无法加载排班数据", "error", err)
		os.Exit(1)
	}

	rules := scheduler.Rules{
		DailyHoursLimit:       cfg.Rules.DailyHoursLimit,
		DefaultMaxWeeklyHours: cfg.Rules.DefaultMaxWeeklyHours,
		ApproachingRatio:      cfg.Rules.ApproachingRatio,
	}
	opts := []orchestrator.Option{
		orchestrator.WithLogger(logger),
		orchestrator.WithOperatorEmail(operator),
	}

	if !localLock {
		rdb := redis.NewClient(&redis.Options{
			Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			Password: cfg.Redis.Password,
			DB:       0,
		})
		defer rdb.Close()
		opts = append(opts, orchestrator.WithLocker(lock.NewRedis(rdb, time.Duration(cfg.Redis.LockTTL)*time.Second)))
	}

	var notifier orchestrator.Notifier = notify.Nop{}
	if sendMail {
		conn, err := amqp.Dial(cfg.RabbitMQ.DSN)
		if err != nil {
			logger.Error("无法连接到 rabbitmq", "error", err)
			os.Exit(1)
		}
		defer conn.Close()

		ch, err := conn.Channel()
		if err != nil {
			logger.Error("无法建立通道", "error", err)
			os.Exit(1)
		}
		defer ch.Close()

		notifier = notify.NewPublisher(cfg, ch, logger)
	}
	opts = append(opts, orchestrator.WithNotifier(notifier))

	// 命令行没有交互，清空本周由 -clear 显式确认
	o := orchestrator.New(st, repo, scheduler.NewValidator(rules), orchestrator.AlwaysConfirm, opts...)

	if review {
		records := o.Review()
		for _, r := range records {
			logger.Warn("发现冲突", "type", r.Type, "severity", r.Severity, "staff", r.StaffID, "date", r.AffectedDate, "message", r.Message)
		}
		logger.Info("复查完成", "conflicts", len(records))
		return
	}

	if clearWeek {
		outcome, err := o.ClearWeek(ctx)
		if err != nil {
			logger.Error("清空本周失败", "error", err)
			os.Exit(1)
		}
		logger.Info(outcome.Message)
	}

	report, err := o.AutoFill(ctx)
	if err != nil {
		logger.Error("自动排班失败", "error", err)
		if report == nil {
			os.Exit(1)
		}
	}
	logger.Info("自动排班结果", "message", report.Message, "created", report.Created, "skipped", report.Skipped, "unfilled", report.Unfilled)

	for _, h := range o.Hours() {
		logger.Info("工时", "staff", h.FullName, "week", h.Week, "max", h.MaxWeekly)
	}
}
