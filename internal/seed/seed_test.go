package seed

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mahuti/tasks/backend/internal/domain"
)

type memoryStore struct {
	staff     []*domain.Staff
	tasks     []*domain.Task
	createErr error
}

func (m *memoryStore) GetAllStaff() ([]*domain.Staff, error) { return m.staff, nil }

func (m *memoryStore) CreateStaff(s *domain.Staff) error {
	if m.createErr != nil {
		return m.createErr
	}
	s.ID = int64(len(m.staff) + 1)
	m.staff = append(m.staff, s)
	return nil
}

func (m *memoryStore) GetAllTasks() ([]*domain.Task, error) { return m.tasks, nil }

func (m *memoryStore) CreateTask(t *domain.Task) error {
	t.ID = int64(len(m.tasks) + 1)
	t.SortOrder = int32(len(m.tasks))
	m.tasks = append(m.tasks, t)
	return nil
}

func TestSeedSampleData(t *testing.T) {
	t.Run("fills empty tables", func(t *testing.T) {
		store := &memoryStore{}

		require.NoError(t, SeedSampleData(store))

		require.Len(t, store.staff, 6)
		require.Equal(t, "Rocio", store.staff[0].Name)
		require.Equal(t, "#FF6B58", store.staff[0].Color)
		require.Len(t, store.tasks, 5)
		require.Equal(t, "Lunch", store.tasks[0].Name)
		require.Equal(t, "🌳", store.tasks[0].Icon)
		require.Equal(t, "Activities", store.tasks[4].Name)
	})

	t.Run("skips tables that already have rows", func(t *testing.T) {
		store := &memoryStore{staff: []*domain.Staff{{ID: 1, Name: "Vivi"}}}

		require.NoError(t, SeedSampleData(store))

		require.Len(t, store.staff, 1)
		require.Len(t, store.tasks, 5)
	})

	t.Run("stops on insert failure", func(t *testing.T) {
		store := &memoryStore{createErr: errors.New("boom")}

		err := SeedSampleData(store)

		require.ErrorContains(t, err, "Rocio")
		require.Empty(t, store.tasks)
	})
}

func TestParse(t *testing.T) {
	t.Run("requires header columns", func(t *testing.T) {
		_, err := ParseTasks(strings.NewReader("name,color\nLunch,#5FB878\n"))

		require.ErrorContains(t, err, "icon")
	})

	t.Run("rejects bad colors", func(t *testing.T) {
		_, err := ParseStaff(strings.NewReader("name,color\nRocio,coral\n"))

		require.Error(t, err)
	})

	t.Run("allows missing optional role", func(t *testing.T) {
		staff, err := ParseStaff(strings.NewReader("name,color\nFlor,#5FB878\n"))

		require.NoError(t, err)
		require.Len(t, staff, 1)
		require.Empty(t, staff[0].Role)
	})
}
