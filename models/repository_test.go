package models

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ziwuxx-intake/config"
)

func openTestRepo(t *testing.T) *GormRepository {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inquiries.db")
	repo, err := Open(config.DatabaseConfig{URL: "sqlite:///" + path})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func newInquiry(phone string, at time.Time) *Inquiry {
	return &Inquiry{
		Phone:       phone,
		Email:       "a@b.com",
		GradeLevel:  "高三",
		Project:     "点火计划 创投实战营",
		SubmittedAt: at,
	}
}

func TestGormRepository_CreateAndFindAll(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, phone := range []string{"13800138000", "13900139000", "15000150000"} {
		require.NoError(t, repo.Create(ctx, newInquiry(phone, base.Add(time.Duration(i)*time.Minute))))
	}

	got, err := repo.FindAll(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "15000150000", got[0].Phone)
	assert.Equal(t, "13900139000", got[1].Phone)
	assert.Equal(t, "13800138000", got[2].Phone)
	assert.True(t, got[0].SubmittedAt.Equal(base.Add(2*time.Minute)))
	assert.Equal(t, "", got[0].Message)
	assert.NotZero(t, got[0].ID)
}

func TestGormRepository_FindAllEmpty(t *testing.T) {
	repo := openTestRepo(t)

	got, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestGormRepository_SchemaViolation(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	bad := newInquiry("13800138000", time.Now())
	bad.GradeLevel = "小学"

	err := repo.Create(ctx, bad)
	require.Error(t, err)
	assert.True(t, IsSchemaViolation(err))
	assert.False(t, IsUnavailable(err))
	assert.ErrorIs(t, err, ErrSchemaViolation)

	bad = newInquiry("13800138000", time.Now())
	bad.Project = "Project W"
	assert.True(t, IsSchemaViolation(repo.Create(ctx, bad)))

	got, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGormRepository_DefaultsSubmittedAt(t *testing.T) {
	repo := openTestRepo(t)
	inquiry := newInquiry("13800138000", time.Time{})

	require.NoError(t, repo.Create(context.Background(), inquiry))
	assert.WithinDuration(t, time.Now(), inquiry.SubmittedAt, 5*time.Second)
}

func newMockRepo(t *testing.T) (*GormRepository, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return NewGormRepository(db), mock
}

func TestGormRepository_FindAllUnavailable(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery(`SELECT \* FROM "inquiries"`).WillReturnError(errors.New("dial tcp: connection refused"))

	_, err := repo.FindAll(context.Background())
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRepository_CreateUnavailable(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectBegin().WillReturnError(errors.New("connection reset by peer"))

	err := repo.Create(context.Background(), newInquiry("13800138000", time.Now()))
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))

	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "create inquiry", pe.Op)
}

func TestWrapErr(t *testing.T) {
	assert.Nil(t, wrapErr("op", nil))

	tests := []struct {
		name string
		err  error
		want PersistenceKind
	}{
		{"deadline", context.DeadlineExceeded, Unavailable},
		{"check constraint", gorm.ErrCheckConstraintViolated, SchemaViolation},
		{"duplicate", gorm.ErrDuplicatedKey, SchemaViolation},
		{"schema hook", ErrSchemaViolation, SchemaViolation},
		{"driver", errors.New("broken pipe"), Unavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var pe *PersistenceError
			require.ErrorAs(t, wrapErr("op", tt.err), &pe)
			assert.Equal(t, tt.want, pe.Kind)
		})
	}

	// already classified errors pass through untouched
	inner := &PersistenceError{Kind: SchemaViolation, Op: "inner", Err: errors.New("x")}
	assert.Same(t, inner, wrapErr("outer", inner))
}
