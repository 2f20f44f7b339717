package utils

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mahuti/tasks/backend/internal/domain"
)

func TestRomanizeChineseName(t *testing.T) {
	require.Equal(t, "Wang Weiming", RomanizeChineseName("王伟明"))
	require.Equal(t, "Li", RomanizeChineseName("李"))
	require.Equal(t, "Rocio", RomanizeChineseName("Rocio"))
}

func TestGenerateRandomWeek(t *testing.T) {
	tasks := []*domain.Task{{ID: 1, Name: "Lunch"}, {ID: 2, Name: "Dish"}, {ID: 3, Name: "Water"}}
	staff := []*domain.Staff{{ID: 7}, {ID: 8}}

	assignments := GenerateRandomWeek(9, tasks, staff, 1)

	perDay := make(map[int32]map[int64]int)
	for _, a := range assignments {
		require.Equal(t, int64(9), a.ScheduleID)
		require.NoError(t, ValidateDayOfWeek(a.DayOfWeek))
		if perDay[a.DayOfWeek] == nil {
			perDay[a.DayOfWeek] = make(map[int64]int)
		}
		perDay[a.DayOfWeek][a.StaffID]++
		require.LessOrEqual(t, perDay[a.DayOfWeek][a.StaffID], 1)
	}

	require.Empty(t, GenerateRandomWeek(9, tasks, nil, 1))
}

func TestGenerateLinkToken(t *testing.T) {
	a, b := GenerateLinkToken(), GenerateLinkToken()

	require.Len(t, a, 32)
	require.NotEqual(t, a, b)
}
