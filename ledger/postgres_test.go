package ledger

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockLedger(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgres(db), mock
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPostgresStore(t *testing.T) {
	pg, mock := newMockLedger(t)
	exp := time.Now().Add(time.Hour)

	mock.ExpectExec(`insert into refresh_tokens`).
		WithArgs("row-1", "id-1", "hash-1", exp).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := pg.Store(context.Background(), Token{
		ID: "row-1", IdentityID: "id-1", TokenHash: "hash-1", ExpiresAt: exp,
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	expectMet(t, mock)
}

func TestPostgresRotateHappyPath(t *testing.T) {
	pg, mock := newMockLedger(t)
	exp := time.Now().Add(time.Hour)

	mock.ExpectBegin()
	mock.ExpectQuery(`select id, revoked, expires_at from refresh_tokens`).
		WithArgs("id-1", "old-hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "revoked", "expires_at"}).
			AddRow("row-old", false, time.Now().Add(time.Hour)))
	mock.ExpectExec(`update refresh_tokens set revoked=true where id=`).
		WithArgs("row-old").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`insert into refresh_tokens`).
		WithArgs("row-new", "id-1", "new-hash", exp).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	out, err := pg.Rotate(context.Background(), "id-1", "old-hash", Token{
		ID: "row-new", IdentityID: "id-1", TokenHash: "new-hash", ExpiresAt: exp,
	})
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if !out.Rotated || out.ReuseDetected {
		t.Fatalf("outcome = %+v, want Rotated", out)
	}
	expectMet(t, mock)
}

func TestPostgresRotateRevokedRowDetectsReuse(t *testing.T) {
	pg, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`select id, revoked, expires_at from refresh_tokens`).
		WithArgs("id-1", "burned-hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "revoked", "expires_at"}).
			AddRow("row-old", true, time.Now().Add(time.Hour)))
	mock.ExpectExec(`update refresh_tokens set revoked=true where identity_id=`).
		WithArgs("id-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectCommit()

	out, err := pg.Rotate(context.Background(), "id-1", "burned-hash", Token{ID: "row-new"})
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if !out.ReuseDetected || out.Rotated {
		t.Fatalf("outcome = %+v, want ReuseDetected", out)
	}
	expectMet(t, mock)
}

func TestPostgresRotateMissingRowDetectsReuse(t *testing.T) {
	pg, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`select id, revoked, expires_at from refresh_tokens`).
		WithArgs("id-1", "unknown-hash").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`update refresh_tokens set revoked=true where identity_id=`).
		WithArgs("id-1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	out, err := pg.Rotate(context.Background(), "id-1", "unknown-hash", Token{ID: "row-new"})
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if !out.ReuseDetected {
		t.Fatalf("outcome = %+v, want ReuseDetected", out)
	}
	expectMet(t, mock)
}

func TestPostgresRotateExpiredRow(t *testing.T) {
	pg, mock := newMockLedger(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`select id, revoked, expires_at from refresh_tokens`).
		WithArgs("id-1", "stale-hash").
		WillReturnRows(sqlmock.NewRows([]string{"id", "revoked", "expires_at"}).
			AddRow("row-old", false, time.Now().Add(-time.Minute)))
	mock.ExpectExec(`update refresh_tokens set revoked=true where id=`).
		WithArgs("row-old").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	out, err := pg.Rotate(context.Background(), "id-1", "stale-hash", Token{ID: "row-new"})
	if err != nil {
		t.Fatalf("Rotate: %v", err)
	}
	if out.Rotated || out.ReuseDetected {
		t.Fatalf("outcome = %+v, want neither flag for an expired row", out)
	}
	expectMet(t, mock)
}

func TestPostgresIsValid(t *testing.T) {
	pg, mock := newMockLedger(t)

	mock.ExpectQuery(`select expires_at from refresh_tokens`).
		WithArgs("id-1", "hash-1").
		WillReturnRows(sqlmock.NewRows([]string{"expires_at"}).
			AddRow(time.Now().Add(time.Hour)))

	ok, err := pg.IsValid(context.Background(), "id-1", "hash-1")
	if err != nil || !ok {
		t.Fatalf("IsValid = %v, %v; want true", ok, err)
	}

	mock.ExpectQuery(`select expires_at from refresh_tokens`).
		WithArgs("id-1", "missing").
		WillReturnError(sql.ErrNoRows)

	ok, err = pg.IsValid(context.Background(), "id-1", "missing")
	if err != nil || ok {
		t.Fatalf("IsValid for missing row = %v, %v; want false, nil", ok, err)
	}
	expectMet(t, mock)
}

func TestPostgresRevokeAll(t *testing.T) {
	pg, mock := newMockLedger(t)

	mock.ExpectExec(`update refresh_tokens set revoked=true where identity_id=`).
		WithArgs("id-1").
		WillReturnResult(sqlmock.NewResult(0, 4))

	if err := pg.RevokeAll(context.Background(), "id-1"); err != nil {
		t.Fatalf("RevokeAll: %v", err)
	}
	expectMet(t, mock)
}

func TestPostgresPurgeRevoked(t *testing.T) {
	pg, mock := newMockLedger(t)
	cutoff := time.Now().Add(-24 * time.Hour)

	mock.ExpectExec(`delete from refresh_tokens`).
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 7))

	n, err := pg.PurgeRevoked(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("PurgeRevoked: %v", err)
	}
	if n != 7 {
		t.Fatalf("purged = %d, want 7", n)
	}
	expectMet(t, mock)
}
