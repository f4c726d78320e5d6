package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

type UserStore interface {
	Create(ctx context.Context, u *UserRecord) (*UserRecord, error)
	Update(ctx context.Context, patch UserPatch) (*UserRecord, error)
	Delete(ctx context.Context, userID int64) error
	List(ctx context.Context, q UserQuery) (*Page[UserRecord], error)
	GetByID(ctx context.Context, userID int64) (*UserRecord, error)
	GetByEmail(ctx context.Context, email string) (*UserRecord, error)
}

const (
	userColumns = `id, public_id, name, email, phone, specialities, user_image, password_hash, is_active, created_at, updated_at`

	insertUserQuery = `
				INSERT INTO users (public_id, name, email, phone, specialities, user_image, password_hash, is_active)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				RETURNING ` + userColumns

	updateUserQuery = `
				UPDATE users
				SET name         = COALESCE($2, name),
				    email        = COALESCE($3, email),
				    phone        = COALESCE($4, phone),
				    specialities = COALESCE($5, specialities),
				    is_active    = COALESCE($6, is_active),
				    user_image   = COALESCE($7, user_image),
				    updated_at   = now()
				WHERE id = $1 AND NOT is_deleted
				RETURNING ` + userColumns

	softDeleteUserQuery = `
				UPDATE users SET is_deleted = TRUE, updated_at = now()
				WHERE id = $1 AND NOT is_deleted
				`

	selectUserByIDQuery = `
				SELECT ` + userColumns + ` FROM users WHERE id = $1 AND NOT is_deleted
				`

	selectUserByEmailQuery = `
				SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1) AND NOT is_deleted
				`
)

type userStore struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewUserStore(db *sql.DB, logger *zap.Logger) UserStore {
	return &userStore{db: db, logger: logger}
}

func (s *userStore) Create(ctx context.Context, u *UserRecord) (*UserRecord, error) {
	row := s.db.QueryRowContext(ctx, insertUserQuery,
		uuid.NewString(),
		strings.TrimSpace(u.NameUser),
		strings.ToLower(strings.TrimSpace(u.EmailUser)),
		u.PhoneUser,
		u.SpecialitiesUser,
		u.UserImage,
		u.PasswordHash,
		u.IsActiveUser,
	)
	return s.scanUser(row)
}

func (s *userStore) Update(ctx context.Context, patch UserPatch) (*UserRecord, error) {
	row := s.db.QueryRowContext(ctx, updateUserQuery,
		patch.UserID,
		patch.NameUser,
		patch.EmailUser,
		patch.PhoneUser,
		patch.SpecialitiesUser,
		patch.IsActiveUser,
		patch.UserImage,
	)
	return s.scanUser(row)
}

func (s *userStore) Delete(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, softDeleteUserQuery, userID)
	if err != nil {
		s.logger.Error("failed to delete user", zap.Int64("userId", userID), zap.Error(err))
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *userStore) List(ctx context.Context, q UserQuery) (*Page[UserRecord], error) {
	where := []string{"NOT is_deleted"}
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q.NameUser != "" {
		where = append(where, "name ILIKE "+arg("%"+q.NameUser+"%"))
	}
	if q.EmailUser != "" {
		where = append(where, "email ILIKE "+arg("%"+q.EmailUser+"%"))
	}
	if q.PhoneUser != "" {
		where = append(where, "phone ILIKE "+arg("%"+q.PhoneUser+"%"))
	}
	if q.SpecialitiesUser != "" {
		where = append(where, "specialities ILIKE "+arg("%"+q.SpecialitiesUser+"%"))
	}
	if q.IsActiveUser != nil {
		where = append(where, "is_active = "+arg(*q.IsActiveUser))
	}
	cond := strings.Join(where, " AND ")

	var total int64
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM users WHERE "+cond, args...).Scan(&total); err != nil {
		s.logger.Error("failed to count users", zap.Error(err))
		return nil, err
	}

	pageNumber, pageSize := normalizePage(q.PageNumber, q.PageSize)
	query := "SELECT " + userColumns + " FROM users WHERE " + cond +
		" ORDER BY id" +
		" LIMIT " + arg(pageSize) +
		" OFFSET " + arg((pageNumber-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	page := &Page[UserRecord]{
		Items:      []UserRecord{},
		TotalCount: total,
		PageNumber: pageNumber,
		PageSize:   pageSize,
	}
	for rows.Next() {
		u, err := scanUserFrom(rows.Scan)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, *u)
	}
	return page, rows.Err()
}

func (s *userStore) GetByID(ctx context.Context, userID int64) (*UserRecord, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, selectUserByIDQuery, userID))
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (*UserRecord, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, selectUserByEmailQuery, email))
}

func (s *userStore) scanUser(row *sql.Row) (*UserRecord, error) {
	u, err := scanUserFrom(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil, ErrDuplicateEmail
		}
		s.logger.Error("user query failed", zap.Error(err))
		return nil, err
	}
	return u, nil
}

func scanUserFrom(scan func(...any) error) (*UserRecord, error) {
	var u UserRecord
	var updatedAt sql.NullTime
	if err := scan(
		&u.UserID,
		&u.PublicID,
		&u.NameUser,
		&u.EmailUser,
		&u.PhoneUser,
		&u.SpecialitiesUser,
		&u.UserImage,
		&u.PasswordHash,
		&u.IsActiveUser,
		&u.CreatedAtUser,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	if updatedAt.Valid {
		u.UpdatedAtUser = &updatedAt.Time
	}
	return &u, nil
}

func normalizePage(pageNumber, pageSize int) (int, int) {
	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 20
	}
	return pageNumber, pageSize
}
