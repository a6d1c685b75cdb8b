package livenessRepository

const (
	queryCreateTable = `
CREATE TABLE IF NOT EXISTS LivenessSessions (
    id          VARCHAR(26) PRIMARY KEY,
    remote_addr TEXT NOT NULL,
    frames      INTEGER NOT NULL DEFAULT 0,
    blinks      INTEGER NOT NULL DEFAULT 0,
    verified    BOOLEAN NOT NULL DEFAULT FALSE,
    snapshot_key TEXT,
    started_at  TIMESTAMPTZ NOT NULL,
    ended_at    TIMESTAMPTZ NOT NULL,
    verified_at TIMESTAMPTZ
)`

	queryCreateSession = `
INSERT INTO LivenessSessions (id, remote_addr, frames, blinks, verified, snapshot_key, started_at, ended_at, verified_at)
VALUES (:id, :remote_addr, :frames, :blinks, :verified, :snapshot_key, :started_at, :ended_at, :verified_at)`

	queryGetSessionByID = `
SELECT id, remote_addr, frames, blinks, verified, snapshot_key, started_at, ended_at, verified_at
FROM LivenessSessions
    WHERE id = :id`
)
