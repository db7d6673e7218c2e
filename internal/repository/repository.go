// Package repository wraps the generic table store with typed access to
// events and participants. Every mutation is followed by a fresh read; the
// store stays the only source of truth.
package repository

import (
	"context"
	"errors"
	"fmt"

	"athletics-registry/internal/models"
	"athletics-registry/internal/store"
	"athletics-registry/internal/tabular"
)

var (
	ErrNoEventSelected = errors.New("no event selected")
	ErrEventNotFound   = errors.New("event not found")
)

// SelectedEventSlot is the local slot holding the selected event.
const SelectedEventSlot = "selectedEvent"

// fetchRecords reads a whole table. A table that has never been written to
// reads as empty.
func fetchRecords(ctx context.Context, st store.Store, table string) ([]tabular.Record, error) {
	res, err := st.FetchTable(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	if err := res.Err(); err != nil {
		if errors.Is(err, tabular.ErrTableNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch %s: %w", table, err)
	}
	return res.Data, nil
}

// insert and update write only columns the table declares.
func insert(ctx context.Context, st store.Store, table string, f tabular.Fields) (*tabular.WriteResult, error) {
	if err := models.CheckColumns(table, f); err != nil {
		return nil, err
	}
	return st.InsertRecord(ctx, table, f)
}

func update(ctx context.Context, st store.Store, table string, id int, f tabular.Fields) (*tabular.WriteResult, error) {
	if err := models.CheckColumns(table, f); err != nil {
		return nil, err
	}
	return st.UpdateRecord(ctx, table, id, f)
}

func checkWrite(op string, res *tabular.WriteResult, err error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := res.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
