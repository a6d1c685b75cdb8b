package livenessRepository

import (
	"LivenessGolang/internal/api/liveness"
	"LivenessGolang/internal/entity"
	contextPkg "LivenessGolang/pkg/context"
	"context"
	"database/sql"
	"errors"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

var ErrDuplicateSession = errors.New("liveness session already recorded")

type SessionDB struct {
	ID          string         `db:"id"`
	RemoteAddr  string         `db:"remote_addr"`
	Frames      int            `db:"frames"`
	Blinks      int            `db:"blinks"`
	Verified    bool           `db:"verified"`
	SnapshotKey sql.NullString `db:"snapshot_key"`
	StartedAt   sql.NullTime   `db:"started_at"`
	EndedAt     sql.NullTime   `db:"ended_at"`
	VerifiedAt  sql.NullTime   `db:"verified_at"`
}

func (s SessionDB) toEntity() entity.LivenessSession {
	out := entity.LivenessSession{
		ID:          s.ID,
		RemoteAddr:  s.RemoteAddr,
		Frames:      s.Frames,
		Blinks:      s.Blinks,
		Verified:    s.Verified,
		SnapshotKey: s.SnapshotKey.String,
		StartedAt:   s.StartedAt.Time,
		EndedAt:     s.EndedAt.Time,
	}
	if s.VerifiedAt.Valid {
		verifiedAt := s.VerifiedAt.Time
		out.VerifiedAt = &verifiedAt
	}
	return out
}

func (r *sessionRepository) CreateSession(c context.Context, session entity.LivenessSession) error {
	requestID := contextPkg.GetRequestID(c)

	argsKV := map[string]interface{}{
		"id":           session.ID,
		"remote_addr":  session.RemoteAddr,
		"frames":       session.Frames,
		"blinks":       session.Blinks,
		"verified":     session.Verified,
		"snapshot_key": sql.NullString{String: session.SnapshotKey, Valid: session.SnapshotKey != ""},
		"started_at":   session.StartedAt,
		"ended_at":     session.EndedAt,
		"verified_at":  session.VerifiedAt,
	}

	query, args, err := sqlx.Named(queryCreateSession, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateSession")
		return err
	}
	query = r.q.Rebind(query)

	if _, err = r.q.ExecContext(c, query, args...); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": session.ID,
			}).Warn("Liveness session already recorded")
			return ErrDuplicateSession
		}

		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating liveness session")
		return err
	}

	return nil
}

func (r *sessionRepository) GetSessionByID(c context.Context, id string) (entity.LivenessSession, error) {
	requestID := contextPkg.GetRequestID(c)
	var session SessionDB

	query, args, err := sqlx.Named(queryGetSessionByID, map[string]interface{}{"id": id})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSessionByID named query preparation err")
		return entity.LivenessSession{}, err
	}
	query = r.q.Rebind(query)

	if err := r.q.QueryRowxContext(c, query, args...).StructScan(&session); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": id,
			}).Warn("GetSessionByID no rows found")
			return entity.LivenessSession{}, liveness.ErrSessionNotFound
		}

		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetSessionByID query err")
		return entity.LivenessSession{}, err
	}

	return session.toEntity(), nil
}
