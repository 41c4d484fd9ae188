package repository

import (
	"context"
	"time"

	"github.com/iliyamo/identity-service/internal/apperr"
	"github.com/iliyamo/identity-service/internal/model"
)

const tokenColumns = "id,user_id,token_hash,access_token_hash,expires_at,created_at,used,invalidated"

// TokenRepo persists refresh tokens by digest.  The raw token never reaches
// the table.
type TokenRepo struct{ db DBTX }

func NewTokenRepo(db DBTX) *TokenRepo { return &TokenRepo{db: db} }

// Create inserts t.
func (r *TokenRepo) Create(ctx context.Context, t *model.RefreshToken) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO refresh_tokens ("+tokenColumns+") VALUES (?,?,?,?,?,?,?,?)",
		t.ID.Key, t.UserID.Key, t.TokenHash, t.AccessTokenHash, t.ExpiresAt.UTC(), t.CreatedAt.UTC(),
		t.Used, t.Invalidated)
	return classify(err, nil, apperr.ErrConflict)
}

// FindByHash returns the record stored under hash, whatever its state.
func (r *TokenRepo) FindByHash(ctx context.Context, hash string) (*model.RefreshToken, error) {
	var (
		t          model.RefreshToken
		id, userID string
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT "+tokenColumns+" FROM refresh_tokens WHERE token_hash=? LIMIT 1", hash).
		Scan(&id, &userID, &t.TokenHash, &t.AccessTokenHash, &t.ExpiresAt, &t.CreatedAt, &t.Used, &t.Invalidated)
	if err != nil {
		return nil, classify(err, apperr.ErrInvalidToken, nil)
	}
	t.ID = model.IDFrom(model.TableRefreshToken, id)
	t.UserID = model.IDFrom(model.TableUser, userID)
	return &t, nil
}

// Consume marks a usable token used.  The WHERE clause makes it a
// compare-and-set: of two concurrent callers only one changes the row.
func (r *TokenRepo) Consume(ctx context.Context, id model.ID) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET used=1, invalidated=1 WHERE id=? AND used=0 AND invalidated=0", id.Key)
	if err != nil {
		return apperr.Database(err)
	}
	return expectRows(res, apperr.ErrInvalidToken)
}

// InvalidateAllForUser revokes all of the user's live tokens.
func (r *TokenRepo) InvalidateAllForUser(ctx context.Context, userID model.ID) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET invalidated=1 WHERE user_id=? AND invalidated=0", userID.Key)
	if err != nil {
		return 0, apperr.Database(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Database(err)
	}
	return n, nil
}

// DeleteExpired removes tokens that expired before the given time.
func (r *TokenRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at < ?", before.UTC())
	if err != nil {
		return 0, apperr.Database(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Database(err)
	}
	return n, nil
}
