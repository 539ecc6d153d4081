package ledger

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/darkbcx/asset-core2/internal/ids"
)

// Schema creates the table the Postgres ledger needs. Callers that run
// their own migrations can copy it; Migrate applies it directly.
const Schema = `
create table if not exists refresh_tokens (
	id          text primary key,
	identity_id text not null,
	token_hash  text not null,
	expires_at  timestamptz not null,
	revoked     boolean not null default false,
	created_at  timestamptz not null default now()
);
create index if not exists refresh_tokens_identity_hash_idx
	on refresh_tokens (identity_id, token_hash);
`

var _ Ledger = (*Postgres)(nil)

// Postgres implements Ledger on a PostgreSQL database.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an existing database handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Open connects via the pgx stdlib driver with pool defaults tuned for
// the short transactions this store runs.
func Open(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Postgres{db: db}, nil
}

func (p *Postgres) Close() error { return p.db.Close() }

// Migrate applies Schema.
func (p *Postgres) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, Schema)
	return err
}

func (p *Postgres) Store(ctx context.Context, token Token) error {
	if token.ID == "" {
		token.ID = ids.New()
	}
	_, err := p.db.ExecContext(ctx,
		`insert into refresh_tokens(id, identity_id, token_hash, expires_at, revoked)
		 values($1,$2,$3,$4,false)`,
		token.ID, token.IdentityID, token.TokenHash, token.ExpiresAt,
	)
	return err
}

func (p *Postgres) Revoke(ctx context.Context, identityID, tokenHash string) error {
	_, err := p.db.ExecContext(ctx,
		`update refresh_tokens set revoked=true where identity_id=$1 and token_hash=$2 and not revoked`,
		identityID, tokenHash,
	)
	return err
}

func (p *Postgres) RevokeAll(ctx context.Context, identityID string) error {
	_, err := p.db.ExecContext(ctx,
		`update refresh_tokens set revoked=true where identity_id=$1 and not revoked`,
		identityID,
	)
	return err
}

func (p *Postgres) IsValid(ctx context.Context, identityID, tokenHash string) (bool, error) {
	var expiresAt time.Time
	err := p.db.QueryRowContext(ctx,
		`select expires_at from refresh_tokens
		 where identity_id=$1 and token_hash=$2 and not revoked`,
		identityID, tokenHash,
	).Scan(&expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return time.Now().Before(expiresAt), nil
}

// Rotate runs in one transaction with a row lock on the presented
// credential, so concurrent presentations of the same raw token
// serialize: the first commits the rotation, the rest find the row
// revoked and take the reuse path.
func (p *Postgres) Rotate(ctx context.Context, identityID, presentedHash string, successor Token) (RotationOutcome, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return RotationOutcome{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var (
		rowID     string
		revoked   bool
		expiresAt time.Time
	)
	err = tx.QueryRowContext(ctx,
		`select id, revoked, expires_at from refresh_tokens
		 where identity_id=$1 and token_hash=$2 for update`,
		identityID, presentedHash,
	).Scan(&rowID, &revoked, &expiresAt)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Absent row: the credential was never stored or the family
		// was already purged. Treat as reuse and burn the family.
		return p.detectReuse(ctx, tx, identityID)
	case err != nil:
		return RotationOutcome{}, err
	case revoked:
		// A single-use credential presented twice.
		return p.detectReuse(ctx, tx, identityID)
	case !time.Now().Before(expiresAt):
		if _, err := tx.ExecContext(ctx,
			`update refresh_tokens set revoked=true where id=$1`, rowID); err != nil {
			return RotationOutcome{}, err
		}
		if err := tx.Commit(); err != nil {
			return RotationOutcome{}, err
		}
		return RotationOutcome{}, nil
	}

	if _, err := tx.ExecContext(ctx,
		`update refresh_tokens set revoked=true where id=$1`, rowID); err != nil {
		return RotationOutcome{}, err
	}

	if successor.ID == "" {
		successor.ID = ids.New()
	}
	if _, err := tx.ExecContext(ctx,
		`insert into refresh_tokens(id, identity_id, token_hash, expires_at, revoked)
		 values($1,$2,$3,$4,false)`,
		successor.ID, successor.IdentityID, successor.TokenHash, successor.ExpiresAt,
	); err != nil {
		return RotationOutcome{}, err
	}

	if err := tx.Commit(); err != nil {
		return RotationOutcome{}, err
	}
	return RotationOutcome{Rotated: true}, nil
}

func (p *Postgres) detectReuse(ctx context.Context, tx *sql.Tx, identityID string) (RotationOutcome, error) {
	if _, err := tx.ExecContext(ctx,
		`update refresh_tokens set revoked=true where identity_id=$1 and not revoked`,
		identityID,
	); err != nil {
		return RotationOutcome{}, err
	}
	if err := tx.Commit(); err != nil {
		return RotationOutcome{}, err
	}
	return RotationOutcome{ReuseDetected: true}, nil
}

func (p *Postgres) PurgeRevoked(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := p.db.ExecContext(ctx,
		`delete from refresh_tokens where (revoked and created_at < $1) or expires_at < $1`,
		olderThan,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
