package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/KotFed0t/crypto_portfolio_api/config"
	"github.com/KotFed0t/crypto_portfolio_api/internal/converter/dbConverter"
	"github.com/KotFed0t/crypto_portfolio_api/internal/model"
	"github.com/KotFed0t/crypto_portfolio_api/internal/model/dbModel"
	"github.com/KotFed0t/crypto_portfolio_api/utils"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/jmoiron/sqlx"
)

type Postgres struct {
	db  *sqlx.DB
	cfg *config.Config
}

func NewPostgres(cfg *config.Config, db *sqlx.DB) *Postgres {
	return &Postgres{db: db, cfg: cfg}
}

// mapPgErr translates storage-level failures into repository sentinels.
// The unique constraint is the authoritative "already exists" signal,
// a foreign key violation means the referenced row is gone.
func mapPgErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return ErrAlreadyExists
		case "23503": // foreign_key_violation
			return ErrNotFound
		}
	}
	return err
}

func (r *Postgres) CreateUser(ctx context.Context, username, email, passwordHash string) (userID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.CreateUser"
	query := `INSERT INTO users(username, email, password_hash) VALUES($1, $2, $3) RETURNING user_id`

	slog.Debug("CreateUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("CreateUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("CreateUser completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.db.QueryRowContext(ctx, query, username, email, passwordHash).Scan(&userID)
	if err != nil {
		return 0, mapPgErr(err)
	}

	return userID, nil
}

func (r *Postgres) GetUserByUsername(ctx context.Context, username string) (user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetUserByUsername"
	query := `SELECT user_id, username, email, password_hash, is_active, created_at FROM users WHERE username = $1`

	slog.Debug("GetUserByUsername start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetUserByUsername failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUserByUsername completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbUser := dbModel.User{}
	err = r.db.QueryRowxContext(ctx, query, username).StructScan(&dbUser)
	if err != nil {
		return model.User{}, mapPgErr(err)
	}

	return dbConverter.ConvertUser(dbUser), nil
}

func (r *Postgres) GetUserByID(ctx context.Context, userID int64) (user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetUserByID"
	query := `SELECT user_id, username, email, password_hash, is_active, created_at FROM users WHERE user_id = $1`

	slog.Debug("GetUserByID start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetUserByID failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUserByID completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbUser := dbModel.User{}
	err = r.db.QueryRowxContext(ctx, query, userID).StructScan(&dbUser)
	if err != nil {
		return model.User{}, mapPgErr(err)
	}

	return dbConverter.ConvertUser(dbUser), nil
}

func (r *Postgres) UpdateUser(ctx context.Context, userID int64, email, passwordHash *string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateUser"
	query := `
		UPDATE users
		SET
			email = COALESCE($1, email),
			password_hash = COALESCE($2, password_hash)
		WHERE user_id = $3
	`

	slog.Debug("UpdateUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateUser completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.db.ExecContext(ctx, query, email, passwordHash, userID)
	if err != nil {
		return mapPgErr(err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Postgres) DeleteUser(ctx context.Context, userID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteUser"
	query := `DELETE FROM users WHERE user_id = $1`

	slog.Debug("DeleteUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteUser completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return mapPgErr(err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Postgres) CreatePortfolio(ctx context.Context, userID int64, name string, description *string) (portfolioID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.CreatePortfolio"
	query := `INSERT INTO portfolios(user_id, name, description) VALUES($1, $2, $3) RETURNING portfolio_id`

	slog.Debug("CreatePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("CreatePortfolio failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("CreatePortfolio completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.db.QueryRowContext(ctx, query, userID, name, description).Scan(&portfolioID)
	if err != nil {
		return 0, mapPgErr(err)
	}

	return portfolioID, nil
}

func (r *Postgres) GetPortfolio(ctx context.Context, portfolioID int64) (portfolio model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetPortfolio"
	query := `SELECT portfolio_id, user_id, name, description, created_at FROM portfolios WHERE portfolio_id = $1`

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetPortfolio failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPortfolio completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbPortfolio := dbModel.Portfolio{}
	err = r.db.QueryRowxContext(ctx, query, portfolioID).StructScan(&dbPortfolio)
	if err != nil {
		return model.Portfolio{}, mapPgErr(err)
	}

	return dbConverter.ConvertPortfolio(dbPortfolio), nil
}

func (r *Postgres) GetPortfoliosByUser(ctx context.Context, userID int64, limit, offset int) (portfolios []model.Portfolio, hasNextPage bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetPortfoliosByUser"
	params := map[string]any{
		"userID": userID,
		"limit":  limit,
		"offset": offset,
	}
	query := `
		SELECT portfolio_id, user_id, name, description, created_at
		FROM portfolios
		WHERE user_id = $1
		ORDER BY portfolio_id
		LIMIT $2
		OFFSET $3
	`

	slog.Debug("GetPortfoliosByUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("GetPortfoliosByUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPortfoliosByUser completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	// select one extra row to know whether a next page exists
	rows, err := r.db.QueryxContext(ctx, query, userID, limit+1, offset)
	if err != nil {
		return nil, false, err
	}

	defer rows.Close()

	i := 0
	portfolios = make([]model.Portfolio, 0, limit)
	for rows.Next() {
		i++
		var dbPortfolio dbModel.Portfolio
		err = rows.StructScan(&dbPortfolio)
		if err != nil {
			return nil, false, err
		}

		if i > limit {
			hasNextPage = true
			break
		}
		portfolios = append(portfolios, dbConverter.ConvertPortfolio(dbPortfolio))
	}

	return portfolios, hasNextPage, nil
}

func (r *Postgres) UpdatePortfolio(ctx context.Context, portfolioID int64, name, description *string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdatePortfolio"
	query := `
		UPDATE portfolios
		SET
			name = COALESCE($1, name),
			description = COALESCE($2, description)
		WHERE portfolio_id = $3
	`

	slog.Debug("UpdatePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdatePortfolio failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdatePortfolio completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.db.ExecContext(ctx, query, name, description, portfolioID)
	if err != nil {
		return mapPgErr(err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Postgres) DeletePortfolio(ctx context.Context, portfolioID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeletePortfolio"
	query := `DELETE FROM portfolios WHERE portfolio_id = $1`

	slog.Debug("DeletePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeletePortfolio failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeletePortfolio completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.db.ExecContext(ctx, query, portfolioID)
	if err != nil {
		return mapPgErr(err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}
