package services_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"shortlist/internal/logger"
	"shortlist/internal/models"
	"shortlist/internal/repos"
	"shortlist/internal/repos/testutil"
)

type testEnv struct {
	db    *gorm.DB
	repos *repos.Repos
	log   *logger.Logger
}

func newEnv(t *testing.T) *testEnv {
	t.Helper()
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	return &testEnv{db: gdb, repos: repos.New(gdb, log), log: log}
}

// recordingTrigger remembers every scheduled property.
type recordingTrigger struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (r *recordingTrigger) ScheduleUpdate(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, id)
}

func (r *recordingTrigger) count(id uuid.UUID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, got := range r.ids {
		if got == id {
			n++
		}
	}
	return n
}

func countRows(t *testing.T, gdb *gorm.DB, model interface{}, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	if err := gdb.Model(model).Where(where, args...).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

func primary(t *testing.T, gdb *gorm.DB, email string) *models.User {
	return testutil.SeedUser(t, gdb, email, models.RolePrimary)
}
