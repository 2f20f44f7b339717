package utils

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/mozillazg/go-pinyin"
	"golang.org/x/crypto/bcrypt"

	"github.com/mahuti/tasks/backend/internal/domain"
)

var commonSurnames = []string{
	"王", "李", "张", "刘", "陈", "杨", "赵", "黄", "周", "吴",
	"徐", "孙", "胡", "朱", "高", "林", "何", "郭", "马", "罗",
}
var commonNameCharacters = []string{
	"伟", "强", "芳", "敏", "静", "丽", "刚", "杰", "娟", "勇",
	"艳", "涛", "明", "军", "磊", "洋", "霞", "飞", "玲", "超",
	"华", "平", "辉", "梅", "鑫", "龙", "鹏", "玉", "斌", "欣",
}

func GenerateRandomChineseName() string {
	surname := commonSurnames[rand.Intn(len(commonSurnames))]
	nameLength := rand.Intn(2) + 1
	name := ""

	for i := 0; i < nameLength; i++ {
		name += commonNameCharacters[rand.Intn(len(commonNameCharacters))]
	}
	return surname + name
}

// RomanizeChineseName 把中文姓名转换成拼音，姓和名分开并首字母大写，例如 "王伟明" -> "Wang Weiming"。
// 排班表按列宽显示名字，拼音比汉字更容易和其他员工的名字对齐。
func RomanizeChineseName(chineseName string) string {
	syllables := pinyin.LazyConvert(chineseName, nil)
	if len(syllables) == 0 {
		return chineseName
	}

	surname := capitalize(syllables[0])
	given := strings.Join(syllables[1:], "")
	if given == "" {
		return surname
	}
	return surname + " " + capitalize(given)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var roles = []domain.Role{
	domain.RoleAdmin,
	domain.RoleManager,
	domain.RoleStaff,
}

func GenerateRandomRole() domain.Role {
	return roles[rand.Intn(len(roles))]
}

var digits = "0123456789"

func GenerateRandomUser(password string, emailDomainName string) (*domain.User, error) {
	name := RomanizeChineseName(GenerateRandomChineseName())
	local := strings.ToLower(strings.ReplaceAll(name, " ", "."))
	for i := rand.Intn(3) + 1; i > 0; i-- {
		local += string(digits[rand.Intn(len(digits))])
	}

	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		Email:        local + "@" + emailDomainName,
		PasswordHash: string(passwordHash),
		Name:         name,
		Role:         GenerateRandomRole(),
	}

	return user, nil
}

// 饱和度较高的颜色，打印出来也容易区分
var palette = []string{
	"#FF6B58", "#4A90E2", "#5FB878", "#FF8C42", "#9370DB",
	"#E74B9C", "#00BCD4", "#FF69B4", "#8BC34A", "#795548",
}

func GenerateRandomColor() string {
	return palette[rand.Intn(len(palette))]
}

func GenerateRandomStaff() *domain.Staff {
	return &domain.Staff{
		Name:  RomanizeChineseName(GenerateRandomChineseName()),
		Color: GenerateRandomColor(),
	}
}

func GenerateRandomOTP() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%^&*")

func GenerateRandomPassword(length int) string {
	randomPassword := make([]rune, length)
	for i := range randomPassword {
		randomPassword[i] = letters[rand.Intn(len(letters))]
	}
	return string(randomPassword)
}

// GenerateLinkToken 生成邀请和分享链接中的 token，需要不可预测，所以不用 math/rand
func GenerateLinkToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// GenerateRandomWeek 为一周的每个 (天, 任务) 格子随机安排一名员工，
// 同一员工同一天最多负责 maxPerDay 项任务
func GenerateRandomWeek(scheduleID int64, tasks []*domain.Task, staff []*domain.Staff, maxPerDay int) []*domain.Assignment {
	if len(staff) == 0 {
		return nil
	}

	assignments := make([]*domain.Assignment, 0, domain.DaysPerWeek*len(tasks))
	for day := int32(0); day < domain.DaysPerWeek; day++ {
		load := make(map[int64]int)
		for _, task := range tasks {
			// 有一定概率留空
			if rand.Intn(5) == 0 {
				continue
			}

			candidates := make([]*domain.Staff, 0, len(staff))
			for _, s := range staff {
				if load[s.ID] < maxPerDay {
					candidates = append(candidates, s)
				}
			}
			if len(candidates) == 0 {
				break
			}

			s := candidates[rand.Intn(len(candidates))]
			load[s.ID]++
			assignments = append(assignments, &domain.Assignment{
				ScheduleID: scheduleID,
				TaskID:     task.ID,
				StaffID:    s.ID,
				DayOfWeek:  day,
				TimeSlot:   task.Name,
			})
		}
	}

	return assignments
}
