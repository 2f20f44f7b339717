package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/mahuti/tasks/backend/internal/domain"
	"github.com/mahuti/tasks/backend/internal/grid"
)

// Client 通过 REST API 访问排班服务，登录后的会话保存在 cookie 中
type Client struct {
	baseURL string
	http    *http.Client
	week    domain.Week
	logger  *slog.Logger
}

type Option func(*Client)

// WithTransport 替换底层的 RoundTripper，例如加上监控指标
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) {
		c.http.Transport = rt
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

func New(baseURL string, week domain.Week, timeout time.Duration, opts ...Option) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: timeout,
		},
		week:   week,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

type response struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// APIError 是服务端返回的错误，Unwrap 得到 grid 中对应的错误分类
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusConflict:
		return grid.ErrConflict
	case http.StatusNotFound:
		return grid.ErrNotFound
	case http.StatusUnauthorized, http.StatusForbidden:
		return grid.ErrUnauthorized
	default:
		return grid.ErrTransport
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", grid.ErrTransport, err)
	}
	defer resp.Body.Close()

	var envelope response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("%w: decode response: %w", grid.ErrTransport, err)
	}

	if resp.StatusCode >= http.StatusBadRequest || !envelope.Success {
		status := resp.StatusCode
		if status < http.StatusBadRequest {
			status = http.StatusBadRequest
		}
		c.logger.Debug("请求被服务端拒绝", "method", method, "path", path, "status", resp.StatusCode, "message", envelope.Message)
		return &APIError{Status: status, Message: envelope.Message}
	}

	if out == nil || len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("%w: decode data: %w", grid.ErrTransport, err)
	}

	return nil
}

// Login 登录并保存会话 cookie
func (c *Client) Login(ctx context.Context, email, password string) (*domain.User, error) {
	req := struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}{email, password}

	if err := c.do(ctx, http.MethodPost, "/auth/login", req, nil); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	user := &domain.User{}
	if err := c.do(ctx, http.MethodGet, "/my-info", nil, user); err != nil {
		return nil, fmt.Errorf("load my info: %w", err)
	}

	return user, nil
}

func (c *Client) ListTasks(ctx context.Context) ([]*domain.Task, error) {
	var tasks []*domain.Task
	if err := c.do(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

func (c *Client) ListStaff(ctx context.Context) ([]*domain.Staff, error) {
	var staff []*domain.Staff
	if err := c.do(ctx, http.MethodGet, "/staff", nil, &staff); err != nil {
		return nil, err
	}
	return staff, nil
}

// Catalog 加载任务和员工，生成会话使用的 grid.Catalog
func (c *Client) Catalog(ctx context.Context) (*grid.Catalog, error) {
	tasks, err := c.ListTasks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	staff, err := c.ListStaff(ctx)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}

	taskInfos := make([]grid.TaskInfo, 0, len(tasks))
	for _, t := range tasks {
		taskInfos = append(taskInfos, grid.TaskInfo{ID: t.ID, Name: t.Name, Icon: t.Icon, Color: t.Color})
	}
	staffInfos := make([]grid.StaffInfo, 0, len(staff))
	for _, s := range staff {
		staffInfos = append(staffInfos, grid.StaffInfo{ID: s.ID, Name: s.Name, Color: s.Color})
	}

	return grid.NewCatalog(taskInfos, staffInfos), nil
}

// EnsureSchedule 返回 weekStart 所在周的排班表 ID，不存在时由服务端创建
func (c *Client) EnsureSchedule(ctx context.Context, weekStart time.Time) (int64, error) {
	req := struct {
		WeekStart string `json:"weekStart"`
	}{weekStart.Format(time.DateOnly)}

	schedule := &domain.Schedule{}
	if err := c.do(ctx, http.MethodPost, "/schedules/ensure", req, schedule); err != nil {
		return 0, err
	}
	return schedule.ID, nil
}

func (c *Client) ListAssignments(ctx context.Context, scheduleID int64) ([]grid.Record, error) {
	var assignments []domain.Assignment
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/schedules/%d/assignments", scheduleID), nil, &assignments); err != nil {
		return nil, err
	}

	records := make([]grid.Record, 0, len(assignments))
	for _, a := range assignments {
		r, err := c.toRecord(a)
		if err != nil {
			// 单条脏数据不影响其他记录的展示
			c.logger.Warn("忽略无法识别的排班记录", "id", a.ID, "error", err)
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

type assignmentRequest struct {
	ScheduleID int64  `json:"scheduleID,omitempty"`
	TaskID     int64  `json:"taskID"`
	StaffID    int64  `json:"staffID"`
	DayOfWeek  int32  `json:"dayOfWeek"`
	TimeSlot   string `json:"timeSlot"`
	Notes      string `json:"notes"`
}

func (c *Client) CreateAssignment(ctx context.Context, req grid.CreateRequest) (grid.Record, error) {
	day, err := c.week.DayIndex(string(req.Day))
	if err != nil {
		return grid.Record{}, err
	}

	body := assignmentRequest{
		ScheduleID: req.ScheduleID,
		TaskID:     req.TaskID,
		StaffID:    req.StaffID,
		DayOfWeek:  day,
		TimeSlot:   req.Slot,
		Notes:      req.Notes,
	}
	var a domain.Assignment
	if err := c.do(ctx, http.MethodPost, "/assignments", body, &a); err != nil {
		return grid.Record{}, err
	}

	return c.toRecord(a)
}

func (c *Client) UpdateAssignment(ctx context.Context, id int64, req grid.UpdateRequest) (grid.Record, error) {
	day, err := c.week.DayIndex(string(req.Day))
	if err != nil {
		return grid.Record{}, err
	}

	body := assignmentRequest{
		TaskID:    req.TaskID,
		StaffID:   req.StaffID,
		DayOfWeek: day,
		TimeSlot:  req.Slot,
		Notes:     req.Notes,
	}
	var a domain.Assignment
	if err := c.do(ctx, http.MethodPut, fmt.Sprintf("/assignments/%d", id), body, &a); err != nil {
		return grid.Record{}, err
	}

	return c.toRecord(a)
}

func (c *Client) DeleteAssignment(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/assignments/%d", id), nil, nil)
}

func (c *Client) ClearAssignments(ctx context.Context, scheduleID int64) (int64, error) {
	var out struct {
		DeletedCount int64 `json:"deletedCount"`
	}
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/schedules/%d/assignments", scheduleID), nil, &out); err != nil {
		return 0, err
	}
	return out.DeletedCount, nil
}

func (c *Client) toRecord(a domain.Assignment) (grid.Record, error) {
	day, err := c.week.DayName(a.DayOfWeek)
	if err != nil {
		return grid.Record{}, err
	}
	if a.ID == 0 {
		return grid.Record{}, errors.New("assignment without id")
	}

	return grid.Record{
		ID:         grid.Durable(a.ID),
		ScheduleID: a.ScheduleID,
		TaskID:     a.TaskID,
		StaffID:    a.StaffID,
		Day:        grid.Day(day),
		Slot:       a.TimeSlot,
		Notes:      a.Notes,
		Task:       grid.TaskInfo{ID: a.Task.ID, Name: a.Task.Name, Icon: a.Task.Icon, Color: a.Task.Color},
		Staff:      grid.StaffInfo{ID: a.Staff.ID, Name: a.Staff.Name, Color: a.Staff.Color},
	}, nil
}

var (
	_ grid.Persistence       = (*Client)(nil)
	_ grid.ScheduleDirectory = (*Client)(nil)
)
