package seed

import (
	"embed"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/mahuti/tasks/backend/internal/domain"
	"github.com/mahuti/tasks/backend/internal/utils"
)

//go:embed data/*.csv
var dataFS embed.FS

// Store 是写入示例数据需要的 repository 方法
type Store interface {
	GetAllStaff() ([]*domain.Staff, error)
	CreateStaff(s *domain.Staff) error
	GetAllTasks() ([]*domain.Task, error)
	CreateTask(t *domain.Task) error
}

// readRecords 读取带表头的 CSV，要求包含 required 中的所有列
func readRecords(r io.Reader, required []string) ([]map[string]string, error) {
	reader := csv.NewReader(r)

	headers, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}
	for _, key := range required {
		if !slices.Contains(headers, key) {
			return nil, fmt.Errorf("没有找到 %s 列", key)
		}
	}

	var records []map[string]string
	for {
		row, err := reader.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("读取文件失败: %w", err)
		}

		record := make(map[string]string, len(headers))
		for i, value := range row {
			record[headers[i]] = value
		}
		records = append(records, record)
	}

	return records, nil
}

func ParseStaff(r io.Reader) ([]*domain.Staff, error) {
	records, err := readRecords(r, []string{"name", "color"})
	if err != nil {
		return nil, err
	}

	staff := make([]*domain.Staff, 0, len(records))
	for _, record := range records {
		if record["name"] == "" {
			return nil, fmt.Errorf("员工姓名为空: %v", record)
		}
		if err := utils.ValidateColor(record["color"]); err != nil {
			return nil, err
		}
		staff = append(staff, &domain.Staff{
			Name:  record["name"],
			Role:  record["role"],
			Color: record["color"],
		})
	}

	return staff, nil
}

func ParseTasks(r io.Reader) ([]*domain.Task, error) {
	records, err := readRecords(r, []string{"name", "icon", "category", "color"})
	if err != nil {
		return nil, err
	}

	tasks := make([]*domain.Task, 0, len(records))
	for _, record := range records {
		if record["name"] == "" {
			return nil, fmt.Errorf("任务名称为空: %v", record)
		}
		if err := utils.ValidateColor(record["color"]); err != nil {
			return nil, err
		}
		tasks = append(tasks, &domain.Task{
			Name:     record["name"],
			Icon:     record["icon"],
			Category: record["category"],
			Color:    record["color"],
		})
	}

	return tasks, nil
}

// SeedSampleData 在员工表和任务表为空时写入示例数据，已有数据的表会被跳过
func SeedSampleData(s Store) error {
	existingStaff, err := s.GetAllStaff()
	if err != nil {
		return err
	}
	if len(existingStaff) == 0 {
		f, err := dataFS.Open("data/staff.csv")
		if err != nil {
			return err
		}
		defer f.Close()

		staff, err := ParseStaff(f)
		if err != nil {
			return err
		}
		for _, member := range staff {
			if err := s.CreateStaff(member); err != nil {
				return fmt.Errorf("插入员工 %s 失败: %w", member.Name, err)
			}
		}
		slog.Info("插入示例员工成功", "count", len(staff))
	} else {
		slog.Info("员工表已有数据，跳过示例员工", "count", len(existingStaff))
	}

	existingTasks, err := s.GetAllTasks()
	if err != nil {
		return err
	}
	if len(existingTasks) == 0 {
		f, err := dataFS.Open("data/tasks.csv")
		if err != nil {
			return err
		}
		defer f.Close()

		tasks, err := ParseTasks(f)
		if err != nil {
			return err
		}
		for _, task := range tasks {
			if err := s.CreateTask(task); err != nil {
				return fmt.Errorf("插入任务 %s 失败: %w", task.Name, err)
			}
		}
		slog.Info("插入示例任务成功", "count", len(tasks))
	} else {
		slog.Info("任务表已有数据，跳过示例任务", "count", len(existingTasks))
	}

	return nil
}
