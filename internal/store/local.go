package store

import (
	"context"

	"go.uber.org/zap"

	"athletics-registry/internal/tabular"
)

// Local serves the Store contract straight from a backend, producing the same
// envelopes the HTTP endpoint would.
type Local struct {
	backend tabular.Backend
	log     *zap.Logger
}

func NewLocal(backend tabular.Backend, log *zap.Logger) *Local {
	if log == nil {
		log = zap.NewNop()
	}
	return &Local{backend: backend, log: log}
}

func (l *Local) FetchTable(ctx context.Context, table string) (*tabular.ReadResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &tabular.TransportError{Op: ActionRead + " " + table, Err: err}
	}
	sh, err := l.backend.Read(ctx, table)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &tabular.TransportError{Op: ActionRead + " " + table, Err: ctx.Err()}
		}
		l.log.Debug("read failed", zap.String("sheet", table), zap.Error(err))
		return tabular.ReadFailure(err), nil
	}
	return tabular.ReadSuccess(sh), nil
}

func (l *Local) InsertRecord(ctx context.Context, table string, fields tabular.Fields) (*tabular.WriteResult, error) {
	return l.write(ctx, ActionCreate, table, tabular.MsgCreated, func() error {
		return l.backend.Create(ctx, table, fields)
	})
}

func (l *Local) UpdateRecord(ctx context.Context, table string, id int, fields tabular.Fields) (*tabular.WriteResult, error) {
	return l.write(ctx, ActionUpdate, table, tabular.MsgUpdated, func() error {
		return l.backend.Update(ctx, table, id, fields)
	})
}

func (l *Local) DeleteRecord(ctx context.Context, table string, id int) (*tabular.WriteResult, error) {
	return l.write(ctx, ActionDelete, table, tabular.MsgDeleted, func() error {
		return l.backend.Delete(ctx, table, id)
	})
}

func (l *Local) write(ctx context.Context, action, table, okMsg string, fn func() error) (*tabular.WriteResult, error) {
	op := action + " " + table
	if err := ctx.Err(); err != nil {
		return nil, &tabular.TransportError{Op: op, Err: err}
	}
	if err := fn(); err != nil {
		if ctx.Err() != nil {
			return nil, &tabular.TransportError{Op: op, Err: ctx.Err()}
		}
		l.log.Warn("write failed", zap.String("action", action), zap.String("sheet", table), zap.Error(err))
		return tabular.WriteFailure(err), nil
	}
	return tabular.WriteSuccess(okMsg), nil
}
