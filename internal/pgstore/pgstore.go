// Package pgstore keeps spreadsheet-shaped tables in PostgreSQL: one row per
// table holding its header, one row per data row holding its cells as JSON.
package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/extra/bundebug"

	"athletics-registry/internal/tabular"
)

// SheetTable is a named table and its header row.
type SheetTable struct {
	bun.BaseModel `bun:"table:sheet_tables,alias:st"`

	Name      string    `bun:"name,pk"`
	Headers   []string  `bun:"headers,type:jsonb,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}

// SheetRow is one data row. Position is the row ordinal, 1-based and gapless.
type SheetRow struct {
	bun.BaseModel `bun:"table:sheet_rows,alias:sr"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Sheet    string `bun:"sheet,notnull"`
	Position int    `bun:"position,notnull"`
	Cells    []any  `bun:"cells,type:jsonb,notnull"`
}

// Setup opens a PostgreSQL connection.
func Setup(ctx context.Context, dsn string, debug bool) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())

	if debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return db, nil
}

// CreateTables creates the schema if it is missing.
func CreateTables(ctx context.Context, db *bun.DB) error {
	for _, model := range []interface{}{(*SheetTable)(nil), (*SheetRow)(nil)} {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", model, err)
		}
	}
	_, err := db.NewCreateIndex().
		Model((*SheetRow)(nil)).
		Index("sheet_rows_sheet_position").
		Column("sheet", "position").
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("creating sheet_rows index: %w", err)
	}
	return nil
}

type Store struct {
	db *bun.DB
}

var _ tabular.Backend = (*Store)(nil)

func New(db *bun.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Read(ctx context.Context, table string) (*tabular.Sheet, error) {
	t, err := loadTable(ctx, s.db, table, false)
	if err != nil {
		return nil, err
	}
	var rows []SheetRow
	err = s.db.NewSelect().Model(&rows).
		Where("sheet = ?", table).
		Order("position ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	sh := &tabular.Sheet{Headers: t.Headers, Rows: make([][]any, 0, len(rows))}
	for _, r := range rows {
		sh.Rows = append(sh.Rows, r.Cells)
	}
	return sh, nil
}

func (s *Store) Create(ctx context.Context, table string, fields tabular.Fields) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		t, err := loadTable(ctx, tx, table, true)
		if errors.Is(err, tabular.ErrTableNotFound) {
			if len(fields) == 0 {
				return tabular.ErrNoFields
			}
			t = &SheetTable{Name: table, Headers: fields.Names()}
			if _, err := tx.NewInsert().Model(t).Exec(ctx); err != nil {
				return fmt.Errorf("create table %s: %w", table, err)
			}
		} else if err != nil {
			return err
		}

		n, err := countRows(ctx, tx, table)
		if err != nil {
			return err
		}
		sh := &tabular.Sheet{Headers: t.Headers}
		row := &SheetRow{Sheet: table, Position: n + 1, Cells: sh.RowFor(fields)}
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return fmt.Errorf("insert into %s: %w", table, err)
		}
		return nil
	})
}

func (s *Store) Update(ctx context.Context, table string, id int, fields tabular.Fields) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		t, err := loadTable(ctx, tx, table, true)
		if err != nil {
			return err
		}
		sh := &tabular.Sheet{Headers: t.Headers}
		if id < 1 {
			return sh.CheckID(id)
		}
		row := new(SheetRow)
		err = tx.NewSelect().Model(row).
			Where("sheet = ?", table).
			Where("position = ?", id).
			For("UPDATE").
			Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %d", tabular.ErrRowNotFound, id)
		}
		if err != nil {
			return fmt.Errorf("load %s row %d: %w", table, id, err)
		}
		row.Cells = sh.Patch(row.Cells, fields)
		if _, err := tx.NewUpdate().Model(row).Column("cells").WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("update %s row %d: %w", table, id, err)
		}
		return nil
	})
}

// Delete removes row id and closes the gap so later rows keep consecutive
// positions.
func (s *Store) Delete(ctx context.Context, table string, id int) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := loadTable(ctx, tx, table, true); err != nil {
			return err
		}
		n, err := countRows(ctx, tx, table)
		if err != nil {
			return err
		}
		sh := &tabular.Sheet{Rows: make([][]any, n)}
		if err := sh.CheckID(id); err != nil {
			return err
		}
		_, err = tx.NewDelete().Model((*SheetRow)(nil)).
			Where("sheet = ?", table).
			Where("position = ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("delete %s row %d: %w", table, id, err)
		}
		_, err = tx.NewUpdate().Model((*SheetRow)(nil)).
			Set("position = position - 1").
			Where("sheet = ?", table).
			Where("position > ?", id).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("shift %s rows: %w", table, err)
		}
		return nil
	})
}

func loadTable(ctx context.Context, db bun.IDB, table string, lock bool) (*SheetTable, error) {
	t := new(SheetTable)
	q := db.NewSelect().Model(t).Where("name = ?", table)
	if lock {
		q = q.For("UPDATE")
	}
	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tabular.ErrTableNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load table %s: %w", table, err)
	}
	return t, nil
}

func countRows(ctx context.Context, db bun.IDB, table string) (int, error) {
	n, err := db.NewSelect().Model((*SheetRow)(nil)).Where("sheet = ?", table).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}
