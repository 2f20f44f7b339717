package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mahuti/tasks/backend/internal/client"
	"github.com/mahuti/tasks/backend/internal/config"
	"github.com/mahuti/tasks/backend/internal/domain"
	"github.com/mahuti/tasks/backend/internal/grid"
	"github.com/mahuti/tasks/backend/internal/metrics"
)

func main() {
	/**********************************************
	 * 创建 logger
	 **********************************************/
	// 交互界面占用标准输出，日志写到标准错误
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	slog.SetDefault(logger)

	/**********************************************
	 * 加载配置
	 **********************************************/
	cfg, err := config.LoadClientConfig()
	if err != nil {
		logger.Error("无法加载配置", "error", err)
		os.Exit(1)
	}

	week, err := domain.ParseWeek(cfg.Week.Start)
	if err != nil {
		logger.Error("无法解析一周的第一天", "error", err)
		os.Exit(1)
	}

	/**********************************************
	 * 创建指标
	 **********************************************/
	reg := prometheus.NewRegistry()
	gridMetrics := metrics.NewGridCollector(reg)

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           metrics.Handler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("指标服务异常退出", "error", err)
			}
		}()
		defer srv.Close()
	}

	/**********************************************
	 * 登录并加载任务和员工
	 **********************************************/
	requestTimeout := time.Duration(cfg.API.RequestTimeout) * time.Second
	api, err := client.New(cfg.API.BaseURL, week, requestTimeout,
		client.WithLogger(logger),
		client.WithTransport(metrics.InstrumentTransport(reg, http.DefaultTransport)),
	)
	if err != nil {
		logger.Error("无法创建客户端", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	me, err := api.Login(ctx, cfg.API.Email, cfg.API.Password)
	if err != nil {
		logger.Error("登录失败", "error", err)
		os.Exit(1)
	}

	catalog, err := api.Catalog(ctx)
	if err != nil {
		logger.Error("无法加载任务和员工", "error", err)
		os.Exit(1)
	}

	/**********************************************
	 * 打开本周的排班表
	 **********************************************/
	con := &console{catalog: catalog, week: week, out: os.Stdout}

	ws := grid.NewWorkspace(api, api, catalog, time.Duration(cfg.Sync.PollInterval)*time.Second,
		grid.WithLogger(logger),
		grid.WithMetrics(gridMetrics),
		grid.WithHistoryCapacity(cfg.Sync.HistoryCapacity),
		grid.WithRequestTimeout(requestTimeout),
		grid.WithResultHandler(con.report),
	)
	defer ws.Close()
	con.ws = ws

	session, err := ws.Navigate(ctx, week.StartOf(time.Now()))
	if err != nil {
		logger.Error("无法打开排班表", "error", err)
		return
	}

	fmt.Printf("欢迎，%s（%s）\n", me.Name, me.Role)
	con.render(session)
	fmt.Println("输入 help 查看可用命令")

	/**********************************************
	 * 读取命令
	 **********************************************/
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if err := con.exec(ctx, line); err != nil {
				if errors.Is(err, errQuit) {
					return
				}
				fmt.Println("错误:", err)
			}
		}
	}
}
