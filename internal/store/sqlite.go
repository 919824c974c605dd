package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"code.dogecoin.org/gossip/dnet"
	"github.com/cenkalti/backoff/v4"
	"github.com/mattn/go-sqlite3"

	"code.dogecoin.org/bittune/internal/spec"
)

type Address = spec.Address

const SecondsPerDay = 24 * 60 * 60

// retry policy for busy/locked transactions
const (
	conflictRetryDelay = 250 * time.Millisecond
	conflictRetryLimit = 120
)

var timeNow = time.Now

type SQLiteStore struct {
	db *sql.DB
}

type SQLiteStoreCtx struct {
	_db *sql.DB
	ctx context.Context
}

var _ spec.Store = &SQLiteStore{}
var _ spec.StoreCtx = SQLiteStoreCtx{}

const SQL_SCHEMA string = `
CREATE TABLE IF NOT EXISTS config (
	dayc INTEGER NOT NULL,
	last INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS peer (
	address BLOB NOT NULL PRIMARY KEY,
	time INTEGER NOT NULL,
	services INTEGER NOT NULL,
	version INTEGER NOT NULL DEFAULT 0,
	agent TEXT NOT NULL DEFAULT '',
	height INTEGER NOT NULL DEFAULT 0,
	isnew BOOLEAN NOT NULL,
	dayc INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS peer_time_i ON peer (time);
CREATE INDEX IF NOT EXISTS peer_isnew_i ON peer (isnew);
`

// NewSQLiteStore returns a spec.Store implementation that uses SQLite
func NewSQLiteStore(fileName string, ctx context.Context) (spec.Store, error) {
	db, err := sql.Open("sqlite3", fileName)
	if err != nil {
		return nil, dbErr(err, "opening database")
	}
	store := &SQLiteStore{db: db}
	// limit concurrent access until we figure out a way to start transactions
	// with the BEGIN CONCURRENT statement in Go.
	// this also keeps a ":memory:" database alive on its single connection.
	db.SetMaxOpenConns(1)
	// init tables / indexes
	_, err = db.Exec(SQL_SCHEMA)
	if err != nil {
		db.Close()
		return nil, dbErr(err, "creating database schema")
	}
	// init config table
	sctx := SQLiteStoreCtx{_db: store.db, ctx: ctx}
	err = sctx.doTxn("init config", func(tx *sql.Tx) error {
		config := tx.QueryRow("SELECT dayc,last FROM config LIMIT 1")
		var dayc int64
		var last int64
		err := config.Scan(&dayc, &last)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				_, err = tx.Exec("INSERT INTO config (dayc,last) VALUES (1,?)", unixDayStamp())
			}
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) Close() {
	s.db.Close()
}

func (s *SQLiteStore) WithCtx(ctx context.Context) spec.StoreCtx {
	return SQLiteStoreCtx{
		_db: s.db,
		ctx: ctx,
	}
}

// The number of whole days since the unix epoch.
func unixDayStamp() int64 {
	return timeNow().Unix() / SecondsPerDay
}

func IsConflict(err error) bool {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		if sqErr.Code == sqlite3.ErrBusy || sqErr.Code == sqlite3.ErrLocked {
			return true
		}
	}
	return false
}

// doTxn runs work in a transaction, retrying the whole transaction
// while SQLite reports the database busy or locked.
func (s SQLiteStoreCtx) doTxn(name string, work func(tx *sql.Tx) error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(conflictRetryDelay), conflictRetryLimit),
		s.ctx)
	return backoff.Retry(func() error {
		err := s.txnOnce(name, work)
		if err != nil && !IsConflict(err) {
			return backoff.Permanent(err)
		}
		return err
	}, policy)
}

func (s SQLiteStoreCtx) txnOnce(name string, work func(tx *sql.Tx) error) error {
	tx, err := s._db.BeginTx(s.ctx, nil)
	if err != nil {
		return dbErr(err, "cannot begin transaction")
	}
	defer tx.Rollback()
	err = work(tx)
	if err != nil {
		return dbErr(err, name)
	}
	err = tx.Commit()
	if err != nil {
		return dbErr(err, fmt.Sprintf("cannot commit %v", name))
	}
	return nil
}

func dbErr(err error, where string) error {
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) {
		if sqErr.Code == sqlite3.ErrConstraint {
			// Constraint violation, e.g. a duplicate key.
			return errors.Join(ErrAlreadyExists, fmt.Errorf("SQLiteStore: %s: %w", where, err))
		}
		if sqErr.Code == sqlite3.ErrBusy || sqErr.Code == sqlite3.ErrLocked {
			// SQLite has a single-writer policy, even in WAL (write-ahead) mode.
			// SQLite will return BUSY if the database is locked by another connection.
			// We treat this as a transient database conflict, and the caller should retry.
			return errors.Join(ErrDBConflict, fmt.Errorf("SQLiteStore: %s: %w", where, err))
		}
	}
	return errors.Join(ErrDBProblem, fmt.Errorf("SQLiteStore: %s: %w", where, err))
}

// STORE INTERFACE

func (s SQLiteStoreCtx) PeerStats() (mapSize int, newPeers int, err error) {
	err = s.doTxn("PeerStats", func(tx *sql.Tx) error {
		row := tx.QueryRow("SELECT COUNT(address), COALESCE(SUM(isnew),0) FROM peer")
		return row.Scan(&mapSize, &newPeers)
	})
	return
}

func (s SQLiteStoreCtx) PeerList() (res spec.PeerListRes, err error) {
	err = s.doTxn("PeerList", func(tx *sql.Tx) error {
		res.Peers = nil // reset on retry
		rows, err := tx.Query("SELECT address,time,services,version,agent,height,isnew FROM peer ORDER BY time DESC")
		if err != nil {
			return fmt.Errorf("query: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var addr []byte
			var p spec.PeerInfo
			err := rows.Scan(&addr, &p.Time, &p.Services, &p.Version, &p.Agent, &p.Height, &p.IsNew)
			if err != nil {
				return fmt.Errorf("scanning row: %w", err)
			}
			a, err := dnet.AddressFromBytes(addr)
			if err != nil {
				return fmt.Errorf("bad peer address: %w", err)
			}
			p.Address = a.String()
			res.Peers = append(res.Peers, p)
		}
		if err = rows.Err(); err != nil { // docs say this check is required!
			return fmt.Errorf("query: %w", err)
		}
		return nil
	})
	return
}

// TrimPeers expires peers after 30 days.
//
// To take account of the possibility that this software has not
// been run in the last 30 days (which would result in immediately
// expiring all peers in the database) we use a system where:
//
// We keep a day counter that we increment once per day.
// All peers, when updated, store the current day counter + 30.
// Peers are expired once their stored day-count is < today.
//
// This causes peer-expiry to lag by the number of offline days.
func (s SQLiteStoreCtx) TrimPeers() (advanced bool, removed int64, err error) {
	err = s.doTxn("TrimPeers", func(tx *sql.Tx) error {
		advanced, removed = false, 0
		// check if date has changed
		row := tx.QueryRow("SELECT dayc,last FROM config LIMIT 1")
		var dayc int64
		var last int64
		err := row.Scan(&dayc, &last)
		if err != nil {
			return fmt.Errorf("SELECT config: %w", err)
		}
		today := unixDayStamp()
		if last == today {
			return nil
		}
		// advance the day-count and save unix-daystamp
		dayc += 1
		advanced = true
		_, err = tx.Exec("UPDATE config SET dayc=?,last=?", dayc, today)
		if err != nil {
			return fmt.Errorf("UPDATE config: %w", err)
		}
		res, err := tx.Exec("DELETE FROM peer WHERE dayc < ?", dayc)
		if err != nil {
			return fmt.Errorf("DELETE peer: %w", err)
		}
		removed, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows-affected: %w", err)
		}
		return nil
	})
	return
}

func (s SQLiteStoreCtx) AddPeer(address Address, unixTimeSec int64, services uint64) error {
	return s.doTxn("AddPeer", func(tx *sql.Tx) error {
		addrKey := address.ToBytes()
		res, err := tx.Exec("UPDATE peer SET time=?, services=?, dayc=?+(SELECT dayc FROM config LIMIT 1) WHERE address=?",
			unixTimeSec, services, spec.PeerExpiryDays, addrKey)
		if err != nil {
			return fmt.Errorf("update: %w", err)
		}
		num, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows-affected: %w", err)
		}
		if num == 0 {
			_, e := tx.Exec("INSERT INTO peer (address, time, services, isnew, dayc) VALUES (?1,?2,?3,true,?4+(SELECT dayc FROM config LIMIT 1))",
				addrKey, unixTimeSec, services, spec.PeerExpiryDays)
			if e != nil {
				return fmt.Errorf("insert: %w", e)
			}
		}
		return nil
	})
}

func (s SQLiteStoreCtx) UpdatePeerVersion(address Address, ver spec.PeerVersion) error {
	return s.doTxn("UpdatePeerVersion", func(tx *sql.Tx) error {
		addrKey := address.ToBytes()
		unixTimeSec := timeNow().Unix()
		res, err := tx.Exec("UPDATE peer SET time=?, services=?, version=?, agent=?, height=?, isnew=FALSE, dayc=?+(SELECT dayc FROM config LIMIT 1) WHERE address=?",
			unixTimeSec, ver.Services, ver.Version, ver.Agent, ver.Height, spec.PeerExpiryDays, addrKey)
		if err != nil {
			return fmt.Errorf("update: %w", err)
		}
		num, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows-affected: %w", err)
		}
		if num == 0 {
			// a fixed peer from the command line
			_, e := tx.Exec("INSERT INTO peer (address, time, services, version, agent, height, isnew, dayc) VALUES (?,?,?,?,?,?,false,?+(SELECT dayc FROM config LIMIT 1))",
				addrKey, unixTimeSec, ver.Services, ver.Version, ver.Agent, ver.Height, spec.PeerExpiryDays)
			if e != nil {
				return fmt.Errorf("insert: %w", e)
			}
		}
		return nil
	})
}

func (s SQLiteStoreCtx) ChoosePeer() (res Address, err error) {
	err = s.doTxn("ChoosePeer", func(tx *sql.Tx) error {
		row := tx.QueryRow("SELECT address FROM peer WHERE isnew=TRUE ORDER BY RANDOM() LIMIT 1")
		var addr []byte
		err := row.Scan(&addr)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("query-is-new: %w", err)
			}
			row = tx.QueryRow("SELECT address FROM peer WHERE isnew=FALSE ORDER BY RANDOM() LIMIT 1")
			err = row.Scan(&addr)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					res = Address{}
					return nil // empty store
				}
				return fmt.Errorf("query-not-new: %w", err)
			}
		}
		res, err = dnet.AddressFromBytes(addr)
		if err != nil {
			return fmt.Errorf("invalid address: %w", err)
		}
		return nil
	})
	return
}
