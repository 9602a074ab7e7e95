package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/sentinelauth/internal/common"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	insertQuery    = `(?s)^\s*INSERT\s+INTO\s+refresh_tokens\s*\(user_id,\s*fingerprint,\s*expires_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*RETURNING\s+id,\s*is_revoked,\s*created_at\s*$`
	selectQuery    = `(?s)^\s*SELECT\s+id,\s*user_id,\s*fingerprint,\s*expires_at,\s*is_revoked,\s*created_at\s+FROM\s+refresh_tokens\s+WHERE\s+fingerprint\s*=\s*\$1\s*$`
	revokeQuery    = `(?s)^\s*UPDATE\s+refresh_tokens\s+SET\s+is_revoked\s*=\s*TRUE\s+WHERE\s+id\s*=\s*\$1\s*$`
	revokeIfQuery  = `(?s)^\s*UPDATE\s+refresh_tokens\s+SET\s+is_revoked\s*=\s*TRUE\s+WHERE\s+id\s*=\s*\$1\s+AND\s+is_revoked\s*=\s*FALSE\s*$`
	revokeAllQuery = `(?s)^\s*UPDATE\s+refresh_tokens\s+SET\s+is_revoked\s*=\s*TRUE\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+is_revoked\s*=\s*FALSE\s*$`
	stateQuery     = `(?s)^\s*SELECT\s+is_revoked\s+FROM\s+refresh_tokens\s+WHERE\s+id\s*=\s*\$1\s*$`
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Date(2026, 1, 8, 12, 0, 0, 0, time.UTC)
	created := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(insertQuery).
		WithArgs("u1", "fp1", expires).
		WillReturnRows(sqlmock.NewRows([]string{"id", "is_revoked", "created_at"}).AddRow("rt1", false, created))

	got, err := repo.Create(context.Background(), "u1", "fp1", expires)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "rt1" || got.UserID != "u1" || got.Fingerprint != "fp1" || got.IsRevoked || !got.ExpiresAt.Equal(expires) || !got.CreatedAt.Equal(created) {
		t.Fatalf("unexpected record: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreate_DuplicateFingerprint(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQuery).
		WithArgs("u1", "fp1", sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	_, err := repo.Create(context.Background(), "u1", "fp1", time.Now())
	if !errors.Is(err, common.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists, got %v", err)
	}
}

func TestCreate_UnknownUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQuery).
		WithArgs("ghost", "fp1", sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23503"})

	_, err := repo.Create(context.Background(), "ghost", "fp1", time.Now())
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQuery).
		WithArgs("u1", "fp1", sqlmock.AnyArg()).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), "u1", "fp1", time.Now())
	if err == nil || !regexp.MustCompile(`error performing sql request: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestFindByFingerprint_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	expires := time.Now().Add(10 * time.Minute)
	created := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "fingerprint", "expires_at", "is_revoked", "created_at"}).
		AddRow("rt1", "u1", "fp1", expires, true, created)

	mock.ExpectQuery(selectQuery).WithArgs("fp1").WillReturnRows(rows)

	got, err := repo.FindByFingerprint(context.Background(), "fp1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "rt1" || got.UserID != "u1" || !got.IsRevoked || !got.ExpiresAt.Equal(expires) {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestFindByFingerprint_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQuery).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByFingerprint(context.Background(), "nope")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("expected ErrorNotFound, got %v", err)
	}
}

func TestFindByFingerprint_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectQuery).WithArgs("fp1").WillReturnError(errors.New("boom"))

	_, err := repo.FindByFingerprint(context.Background(), "fp1")
	if err == nil || errors.Is(err, common.ErrorNotFound) || !regexp.MustCompile(`db error: .*boom`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	// Already revoked or missing rows still succeed.
	mock.ExpectExec(revokeQuery).WithArgs("rt1").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Revoke(context.Background(), "rt1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRevokeIfActive(t *testing.T) {
	tests := []struct {
		name    string
		rows    int64
		present bool
		execErr error
		wantErr error
	}{
		{name: "flipped", rows: 1},
		{name: "already revoked", rows: 0, present: true, wantErr: common.ErrTokenRevoked},
		{name: "gone", rows: 0, wantErr: common.ErrorNotFound},
		{name: "db error", execErr: errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock, db := newRepoWithMock(t)
			defer db.Close()

			exp := mock.ExpectExec(revokeIfQuery).WithArgs("rt1")
			if tt.execErr != nil {
				exp.WillReturnError(tt.execErr)
			} else {
				exp.WillReturnResult(sqlmock.NewResult(0, tt.rows))
			}
			if tt.execErr == nil && tt.rows == 0 {
				rows := sqlmock.NewRows([]string{"is_revoked"})
				if tt.present {
					rows.AddRow(true)
				}
				mock.ExpectQuery(stateQuery).WithArgs("rt1").WillReturnRows(rows)
			}

			err := repo.RevokeIfActive(context.Background(), "rt1")
			switch {
			case tt.execErr != nil:
				if err == nil || errors.Is(err, common.ErrTokenRevoked) {
					t.Fatalf("expected db error, got %v", err)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Fatalf("unmet expectations: %v", err)
			}
		})
	}
}

func TestRevokeAllForUser(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(revokeAllQuery).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.RevokeAllForUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 revoked, got %d", n)
	}
}

func TestRevokeAllForUser_RowsAffectedError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(revokeAllQuery).WithArgs("u1").
		WillReturnResult(sqlmock.NewErrorResult(errors.New("no rows info")))

	if _, err := repo.RevokeAllForUser(context.Background(), "u1"); err == nil {
		t.Fatalf("expected error")
	}
}
