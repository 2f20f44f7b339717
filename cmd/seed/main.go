package main

import (
	"context"
	"database/sql"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/mahuti/tasks/backend/internal/config"
	"github.com/mahuti/tasks/backend/internal/domain"
	"github.com/mahuti/tasks/backend/internal/repository"
	"github.com/mahuti/tasks/backend/internal/seed"
	"github.com/mahuti/tasks/backend/internal/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	var op int
	var n int
	var weekOffset int

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入示例员工和任务, 2: 插入随机员工, 3: 插入随机用户, 4: 随机填充一周的排班)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.IntVar(&weekOffset, "week", 0, "随机填充的周相对于本周的偏移量")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 创建数据库连接池
	dbpool, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		logger.Error("无法创建数据库连接池", "error", err)
		return
	}
	defer dbpool.Close()

	dbpool.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	dbpool.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	dbpool.SetConnMaxIdleTime(time.Duration(cfg.Database.MaxIdleTime) * time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Database.ConnectTimeout)*time.Second)
	defer cancel()

	// sql.Open 只是创建数据库连接池对象，并不会立即连接到数据库，因此需要显式地 ping 一下
	if err := dbpool.PingContext(ctx); err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}

	repo := repository.NewRepository(cfg, dbpool)

	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if err := seed.SeedSampleData(repo); err != nil {
			slog.Error("无法插入示例数据", slog.String("error", err.Error()))
		}
	case 2:
		if n <= 0 {
			slog.Error("请输入合法的员工数量")
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			if err := repo.CreateStaff(utils.GenerateRandomStaff()); err != nil {
				// 随机姓名可能重复，违反 staff_name_key
				slog.Error("无法插入员工", slog.String("error", err.Error()))
				continue
			}
			cnt++
		}

		slog.Info("插入员工成功", slog.Int("count", cnt))
	case 3:
		if n <= 0 {
			slog.Error("请输入合法的用户数量")
			return
		}

		cnt := 0
		for i := 0; i < n; i++ {
			user, err := utils.GenerateRandomUser(cfg.Seed.Password, cfg.Seed.EmailDomain)
			if err != nil {
				slog.Error("无法生成随机用户", slog.String("error", err.Error()))
				continue
			}

			if err := repo.CreateUser(user); err != nil {
				slog.Error("无法插入用户", slog.String("error", err.Error()))
				continue
			}
			cnt++
		}

		slog.Info("插入用户成功", slog.Int("count", cnt))
	case 4:
		fillRandomWeek(cfg, repo, weekOffset)
	default:
		slog.Error("指定的操作非法")
	}
}

// fillRandomWeek 清空目标周的排班表后随机安排每个格子
func fillRandomWeek(cfg *config.Config, repo *repository.Repository, weekOffset int) {
	week, err := domain.ParseWeek(cfg.Week.Start)
	if err != nil {
		slog.Error("无法解析一周的第一天", slog.String("error", err.Error()))
		return
	}

	weekStart := week.StartOf(time.Now()).AddDate(0, 0, weekOffset*domain.DaysPerWeek)
	weekEnd := weekStart.AddDate(0, 0, domain.DaysPerWeek-1)
	schedule, err := repo.EnsureSchedule(weekStart, weekStart.Format(time.DateOnly)+" ~ "+weekEnd.Format(time.DateOnly))
	if err != nil {
		slog.Error("无法获取排班表", slog.String("error", err.Error()))
		return
	}

	tasks, err := repo.GetAllTasks()
	if err != nil {
		slog.Error("无法获取任务列表", slog.String("error", err.Error()))
		return
	}
	staff, err := repo.GetAllStaff()
	if err != nil {
		slog.Error("无法获取员工列表", slog.String("error", err.Error()))
		return
	}

	cleared, err := repo.ClearAssignments(schedule.ID)
	if err != nil {
		slog.Error("无法清空排班表", slog.String("error", err.Error()))
		return
	}

	cnt := 0
	for _, a := range utils.GenerateRandomWeek(schedule.ID, tasks, staff, cfg.Seed.MaxPerDay) {
		if _, err := repo.CreateAssignment(a); err != nil {
			slog.Error("无法插入排班记录", slog.String("error", err.Error()))
			continue
		}
		cnt++
	}

	slog.Info("随机填充排班表成功", slog.Int64("schedule_id", schedule.ID), slog.Int64("cleared", cleared), slog.Int("count", cnt))
}
