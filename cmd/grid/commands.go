package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/mahuti/tasks/backend/internal/domain"
	"github.com/mahuti/tasks/backend/internal/grid"
)

const usage = `可用命令：
  assign <day> <task> <staff>     安排员工
  move <day> <task> <day> [task]  移动记录，目标格子有人时交换
  remove <day> <task>             删除记录
  clear                           清空本周
  undo | redo                     撤销 / 重做
  show                            显示本周排班
  next | prev                     切换到下一周 / 上一周
  refresh                         立即与服务端对账
  help                            显示帮助
  quit                            退出`

var errQuit = errors.New("quit")

// console 解析并执行交互命令
type console struct {
	ws      *grid.Workspace
	catalog *grid.Catalog
	week    domain.Week
	out     io.Writer
}

func parseDay(s string) (grid.Day, error) {
	for _, d := range grid.Days {
		if strings.EqualFold(string(d), s) {
			return d, nil
		}
	}
	return "", fmt.Errorf("无法识别的星期 %q", s)
}

func (c *console) parseTask(s string) (grid.TaskInfo, error) {
	for _, t := range c.catalog.Tasks() {
		if strings.EqualFold(t.Name, s) {
			return t, nil
		}
	}
	return grid.TaskInfo{}, fmt.Errorf("无法识别的任务 %q", s)
}

func (c *console) parseKey(day, task string) (grid.SlotKey, error) {
	d, err := parseDay(day)
	if err != nil {
		return grid.SlotKey{}, err
	}
	t, err := c.parseTask(task)
	if err != nil {
		return grid.SlotKey{}, err
	}
	return grid.SlotKey{Day: d, Slot: t.Name}, nil
}

// exec 执行一行命令。修改类命令只等待本地生效，服务端的结果由结果回调输出。
func (c *console) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	s := c.ws.Current()
	if s == nil {
		return errors.New("没有打开的排班表")
	}

	switch cmd, args := strings.ToLower(fields[0]), fields[1:]; cmd {
	case "assign":
		if len(args) != 3 {
			return errors.New("用法: assign <day> <task> <staff>")
		}
		key, err := c.parseKey(args[0], args[1])
		if err != nil {
			return err
		}
		task, _ := c.catalog.TaskByName(key.Slot)
		staff, ok := c.catalog.StaffByName(args[2])
		if !ok {
			return fmt.Errorf("无法识别的员工 %q", args[2])
		}
		_, err = s.Create(ctx, task.ID, key.Day, staff.ID)
		return err
	case "move":
		if len(args) != 3 && len(args) != 4 {
			return errors.New("用法: move <day> <task> <day> [task]")
		}
		from, err := c.parseKey(args[0], args[1])
		if err != nil {
			return err
		}
		toDay, err := parseDay(args[2])
		if err != nil {
			return err
		}
		toSlot := from.Slot
		if len(args) == 4 {
			task, err := c.parseTask(args[3])
			if err != nil {
				return err
			}
			toSlot = task.Name
		}
		_, err = s.Move(ctx, from, toDay, toSlot)
		return err
	case "remove":
		if len(args) != 2 {
			return errors.New("用法: remove <day> <task>")
		}
		key, err := c.parseKey(args[0], args[1])
		if err != nil {
			return err
		}
		rec, ok := s.Get(key)
		if !ok {
			return fmt.Errorf("格子 %s 是空的", key)
		}
		_, err = s.Remove(ctx, rec.ID)
		return err
	case "clear":
		_, err := s.ClearAll(ctx, s.ScheduleID())
		return err
	case "undo":
		_, err := s.Undo(ctx)
		return err
	case "redo":
		_, err := s.Redo(ctx)
		return err
	case "show":
		c.render(s)
		return nil
	case "next", "prev":
		weeks := 1
		if cmd == "prev" {
			weeks = -1
		}
		next, err := c.ws.Shift(ctx, weeks)
		if err != nil {
			return err
		}
		c.render(next)
		return nil
	case "refresh":
		replaced, err := s.Refresh(ctx)
		if err != nil {
			return err
		}
		if replaced {
			c.render(s)
		} else {
			fmt.Fprintln(c.out, "已是最新")
		}
		return nil
	case "help":
		fmt.Fprintln(c.out, usage)
		return nil
	case "quit", "exit":
		return errQuit
	default:
		return fmt.Errorf("未知命令 %q，输入 help 查看帮助", cmd)
	}
}

// render 以任务为行、星期为列输出当前排班，未确认的记录带 * 号
func (c *console) render(s *grid.Session) {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)

	days := c.week.Days()
	fmt.Fprintf(tw, "%s\t%s\n", c.ws.WeekStart().Format("2006-01-02"), strings.Join(days, "\t"))
	for _, task := range c.catalog.Tasks() {
		cells := make([]string, 0, len(days))
		for _, day := range days {
			rec, ok := s.Get(grid.SlotKey{Day: grid.Day(day), Slot: task.Name})
			switch {
			case !ok:
				cells = append(cells, "-")
			case !rec.Confirmed():
				cells = append(cells, rec.Staff.Name+"*")
			default:
				cells = append(cells, rec.Staff.Name)
			}
		}
		fmt.Fprintf(tw, "%s %s\t%s\n", task.Icon, task.Name, strings.Join(cells, "\t"))
	}
	_ = tw.Flush()

	undo, redo := "", ""
	if s.CanUndo() {
		undo = " [可撤销]"
	}
	if s.CanRedo() {
		redo = " [可重做]"
	}
	fmt.Fprintf(c.out, "共 %d 条记录%s%s\n", len(s.Records()), undo, redo)
}

// report 输出异步操作的最终结果
func (c *console) report(res grid.Result) {
	switch {
	case res.Status == grid.StatusDiscarded:
		fmt.Fprintf(c.out, "[%s] %s 已在确认前删除\n", res.Op, res.Key)
	case res.Status.Failed() && res.Reloaded:
		fmt.Fprintf(c.out, "[%s] 失败（%s），已重新加载: %v\n", res.Op, res.Status, res.Err)
	case res.Status.Failed() && (res.Op == grid.OpUndo || res.Op == grid.OpRedo):
		fmt.Fprintf(c.out, "[%s] 失败（%s），已回滚: %v\n", res.Op, res.Status, res.Err)
	case res.Status.Failed():
		fmt.Fprintf(c.out, "[%s] %s 失败（%s），已回滚: %v\n", res.Op, res.Key, res.Status, res.Err)
	case res.Op == grid.OpClear:
		fmt.Fprintf(c.out, "[%s] 已删除 %d 条记录\n", res.Op, res.Affected)
	}
}
