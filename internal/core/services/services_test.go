package services

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"unilib-circ/internal/adapters/persistence/models"
	"unilib-circ/internal/adapters/persistence/repositories"
	"unilib-circ/internal/core/domain"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv wires the full service stack over an in-memory database
type testEnv struct {
	db *gorm.DB

	userRepo        *repositories.UserRepository
	bookRepo        *repositories.BookRepository
	loanRepo        *repositories.LoanRepository
	fineRepo        *repositories.FineRepository
	reservationRepo *repositories.ReservationRepository
	requestRepo     *repositories.RequestRepository

	fines        *FineService
	reservations *ReservationService
	loans        *LoanService
	requests     *RequestService
	sweep        *SweepService
}

// testDBSeq keeps each test on its own named in-memory database; a shared
// unnamed one would leak rows between tests through the connection pool.
var testDBSeq atomic.Int64

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:svc_test_%d?mode=memory&cache=shared", testDBSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, models.AutoMigrate(db))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	env := &testEnv{
		db:              db,
		userRepo:        repositories.NewUserRepository(db),
		bookRepo:        repositories.NewBookRepository(db),
		loanRepo:        repositories.NewLoanRepository(db),
		fineRepo:        repositories.NewFineRepository(db),
		reservationRepo: repositories.NewReservationRepository(db),
		requestRepo:     repositories.NewRequestRepository(db),
	}

	notify := NewNotificationService("") // disabled, messages only logged
	env.fines = NewFineService(env.fineRepo, env.loanRepo)
	env.reservations = NewReservationService(env.userRepo, env.bookRepo, env.loanRepo, env.reservationRepo, notify)
	env.loans = NewLoanService(env.userRepo, env.bookRepo, env.loanRepo, env.requestRepo, env.reservationRepo,
		env.fines, env.reservations, notify)
	env.requests = NewRequestService(env.requestRepo, env.loans, notify)
	env.sweep = NewSweepService(env.userRepo, env.loanRepo, env.fines, env.reservations, notify)

	return env
}

// setClock pins every service to the same fixed time
func (e *testEnv) setClock(now time.Time) {
	clock := func() time.Time { return now }
	e.fines.now = clock
	e.reservations.now = clock
	e.loans.now = clock
	e.requests.now = clock
	e.sweep.now = clock
}

func (e *testEnv) createUser(t *testing.T, username string, role domain.Role) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@unilib.local",
		Password: "x",
		Role:     string(role),
		IsActive: true,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) createBook(t *testing.T, title string, tag domain.Tag, copies uint) *models.Book {
	t.Helper()
	book := &models.Book{
		Title:           title,
		Author:          "Author of " + title,
		Tag:             string(tag),
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
	require.NoError(t, e.db.Create(book).Error)
	return book
}
