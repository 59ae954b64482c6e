package authstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/roosthq/identity/pkg/auth"
	"github.com/roosthq/identity/pkg/pg"
)

// Postgres is the production auth.Store. Every InTx call maps to one
// database transaction; the unique indexes on credential_bindings and
// users.email are the source of truth for the engine's uniqueness
// invariants.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an established pgx pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) InTx(ctx context.Context, fn func(tx auth.Tx) error) error {
	dbTx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = dbTx.Rollback(ctx) }()

	if err := fn(&pgTx{tx: dbTx}); err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type pgTx struct {
	tx pgx.Tx
}

const userColumns = `id, name, email, avatar_url, activated, created_at, updated_at`

func scanUser(row pgx.Row) (*auth.User, error) {
	var u auth.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.AvatarURL, &u.Activated, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (t *pgTx) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (t *pgTx) FindUserByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (t *pgTx) UpdateUser(ctx context.Context, user *auth.User) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE users
		 SET name = $2, email = $3, avatar_url = $4, activated = $5, updated_at = $6
		 WHERE id = $1`,
		user.ID, user.Name, user.Email, user.AvatarURL, user.Activated, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrUserNotFound
	}
	return nil
}

const bindingColumns = `id, user_id, method, external_id, synced_email, synced_avatar_url, created_at, updated_at`

func scanBinding(row pgx.Row) (*auth.CredentialBinding, error) {
	var b auth.CredentialBinding
	err := row.Scan(&b.ID, &b.UserID, &b.Method, &b.ExternalID, &b.SyncedEmail, &b.SyncedAvatarURL, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrBindingNotFound
		}
		return nil, fmt.Errorf("scan binding: %w", err)
	}
	return &b, nil
}

func (t *pgTx) FindBindingByExternalID(ctx context.Context, kind auth.MethodKind, externalID string) (*auth.CredentialBinding, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+bindingColumns+` FROM credential_bindings WHERE method = $1 AND external_id = $2`,
		kind, externalID)
	return scanBinding(row)
}

func (t *pgTx) FindBindingByUser(ctx context.Context, kind auth.MethodKind, userID uuid.UUID) (*auth.CredentialBinding, error) {
	row := t.tx.QueryRow(ctx,
		`SELECT `+bindingColumns+` FROM credential_bindings WHERE method = $1 AND user_id = $2`,
		kind, userID)
	return scanBinding(row)
}

func (t *pgTx) ListBindingsByUser(ctx context.Context, userID uuid.UUID) ([]auth.CredentialBinding, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT `+bindingColumns+` FROM credential_bindings WHERE user_id = $1 ORDER BY created_at`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("list bindings: %w", err)
	}
	defer rows.Close()

	var bindings []auth.CredentialBinding
	for rows.Next() {
		var b auth.CredentialBinding
		if err := rows.Scan(&b.ID, &b.UserID, &b.Method, &b.ExternalID, &b.SyncedEmail, &b.SyncedAvatarURL, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan binding: %w", err)
		}
		bindings = append(bindings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list bindings: %w", err)
	}
	return bindings, nil
}

func (t *pgTx) CreateBinding(ctx context.Context, binding *auth.CredentialBinding) error {
	// The insert runs under a savepoint: a uniqueness conflict would
	// otherwise abort the enclosing transaction and Postgres would reject
	// every later statement in it, breaking the engine's re-read after
	// ErrBindingExists. Rolling back to the savepoint keeps the
	// transaction usable.
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin savepoint: %w", err)
	}

	if _, err := sp.Exec(ctx,
		`INSERT INTO credential_bindings (`+bindingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		binding.ID, binding.UserID, binding.Method, binding.ExternalID,
		binding.SyncedEmail, binding.SyncedAvatarURL, binding.CreatedAt, binding.UpdatedAt,
	); err != nil {
		_ = sp.Rollback(ctx)
		if pg.IsDuplicateKeyError(err) {
			return auth.ErrBindingExists
		}
		if pg.IsForeignKeyViolationError(err) {
			return auth.ErrUserNotFound
		}
		return fmt.Errorf("create binding: %w", err)
	}

	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func (t *pgTx) UpdateBindingProfile(ctx context.Context, bindingID uuid.UUID, email, avatarURL string) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE credential_bindings
		 SET synced_email = $2, synced_avatar_url = $3, updated_at = now()
		 WHERE id = $1`,
		bindingID, email, avatarURL)
	if err != nil {
		return fmt.Errorf("update binding profile: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrBindingNotFound
	}
	return nil
}

func (t *pgTx) UpdateBindingSecret(ctx context.Context, bindingID uuid.UUID, externalID string) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE credential_bindings
		 SET external_id = $2, updated_at = now()
		 WHERE id = $1`,
		bindingID, externalID)
	if err != nil {
		return fmt.Errorf("update binding secret: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrBindingNotFound
	}
	return nil
}

func (t *pgTx) FindInviteByEmail(ctx context.Context, email string) (*auth.UserInvite, error) {
	var i auth.UserInvite
	err := t.tx.QueryRow(ctx,
		`SELECT id, email, created_at FROM user_invites WHERE email = $1`,
		email).Scan(&i.ID, &i.Email, &i.CreatedAt)
	if err != nil {
		if pg.IsNotFoundError(err) {
			return nil, auth.ErrInviteNotFound
		}
		return nil, fmt.Errorf("scan invite: %w", err)
	}
	return &i, nil
}

var (
	_ auth.Store = (*Postgres)(nil)
	_ auth.Tx    = (*pgTx)(nil)
)
