package livenessRepository

import (
	"LivenessGolang/internal/entity"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func New(db *sqlx.DB, log *logrus.Logger) Repository {
	return &repository{
		DB:  db,
		log: log,
	}
}

type repository struct {
	DB  *sqlx.DB
	log *logrus.Logger
}

type Repository interface {
	NewClient(tx bool) (Client, error)
	Migrate(ctx context.Context) error
}

func (r *repository) NewClient(tx bool) (Client, error) {
	var db sqlx.ExtContext
	var commitFunc, rollbackFunc func() error

	db = r.DB

	if tx {
		txx, err := r.DB.Beginx()
		if err != nil {
			return Client{}, err
		}

		db = txx
		commitFunc = txx.Commit
		rollbackFunc = txx.Rollback
	} else {
		commitFunc = func() error { return nil }
		rollbackFunc = func() error { return nil }
	}

	return Client{
		Sessions: &sessionRepository{q: db, log: r.log},
		Commit:   commitFunc,
		Rollback: rollbackFunc,
	}, nil
}

func (r *repository) Migrate(ctx context.Context) error {
	if _, err := r.DB.ExecContext(ctx, queryCreateTable); err != nil {
		r.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Error("Failed to migrate liveness session table")
		return err
	}
	return nil
}

type Client struct {
	Sessions interface {
		CreateSession(ctx context.Context, session entity.LivenessSession) error
		GetSessionByID(ctx context.Context, id string) (entity.LivenessSession, error)
	}

	Commit   func() error
	Rollback func() error
}

type sessionRepository struct {
	q   sqlx.ExtContext
	log *logrus.Logger
}
