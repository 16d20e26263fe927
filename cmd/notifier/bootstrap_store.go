package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	config "github.com/NordCoder/Killfeed/internal/config/notifier"
	"github.com/NordCoder/Killfeed/internal/domain/cursor"
	"github.com/NordCoder/Killfeed/internal/domain/notification"
	"github.com/NordCoder/Killfeed/internal/domain/run"
	"github.com/NordCoder/Killfeed/internal/repository/file"
	pg "github.com/NordCoder/Killfeed/internal/repository/postgres"
	"github.com/NordCoder/Killfeed/internal/repository/sqlite"
	notifierrepo "github.com/NordCoder/Killfeed/internal/services/notifier/repo"
	"go.uber.org/zap"
)

const lockStaleAfter = 30 * time.Minute

type stores struct {
	cursors cursor.Store
	runLog  run.Log
	locker  cursor.Locker
	history notification.Recorder
	db      *pg.DB
	ping    func(ctx context.Context) error
	close   func()
}

func initStores(ctx context.Context, cfg *config.Config, l *zap.Logger) (*stores, error) {
	switch cfg.Cursor.Driver {
	case config.DriverFile:
		s := &stores{
			cursors: file.NewCursorStore(cfg.Cursor.Path),
			runLog:  file.NewRunLog(cfg.RunLog.Path, cfg.RunLog.MaxEntries),
			ping:    func(context.Context) error { return nil },
			close:   func() {},
		}
		if cfg.Cursor.Lock {
			s.locker = file.NewLockFile(cfg.Cursor.Path+".lock", lockStaleAfter)
		}
		return s, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLite.Path, cfg.Player.Name, cfg.RunLog.MaxEntries)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		s := &stores{
			cursors: db,
			runLog:  db,
			history: db,
			ping:    db.Ping,
			close:   func() { _ = db.Close() },
		}
		if cfg.Cursor.Lock {
			s.locker = file.NewLockFile(filepath.Clean(cfg.SQLite.Path)+".lock", lockStaleAfter)
		}
		return s, nil

	case config.DriverPostgres:
		db, err := pg.NewDB(ctx, cfg.DB)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if err := pg.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, fmt.Errorf("postgres migrate: %w", err)
		}
		cur := pg.NewCursorRepo(db, cfg.Player.Name)
		s := &stores{
			cursors: cur,
			runLog:  pg.NewRunLogRepo(db, cfg.Player.Name, cfg.RunLog.MaxEntries),
			history: notifierrepo.HistoryRecorder{R: pg.NewNotificationRepo(db)},
			db:      db,
			ping: func(ctx context.Context) error {
				hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
				defer cancel()
				return db.Ping(hctx)
			},
			close: db.Close,
		}
		if cfg.Cursor.Lock {
			s.locker = cur
		}
		l.Info("postgres store ready")
		return s, nil
	}
	return nil, fmt.Errorf("unknown cursor driver %q", cfg.Cursor.Driver)
}
