// Package store is the CRUD adapter over a spreadsheet endpoint.
//
// Every operation answers with the endpoint's envelope. Failures the store
// itself reports (missing sheet, bad action, bad row) stay inside the
// envelope; a non-nil error means the request never got a usable answer
// (HTTP status, network, decode, cancellation) and is a *tabular.TransportError.
package store

import (
	"context"

	"athletics-registry/internal/tabular"
)

const (
	ActionRead   = "read"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// Store is implemented by Remote (HTTP) and Local (in-process backend).
type Store interface {
	FetchTable(ctx context.Context, table string) (*tabular.ReadResult, error)
	InsertRecord(ctx context.Context, table string, fields tabular.Fields) (*tabular.WriteResult, error)
	UpdateRecord(ctx context.Context, table string, id int, fields tabular.Fields) (*tabular.WriteResult, error)
	DeleteRecord(ctx context.Context, table string, id int) (*tabular.WriteResult, error)
}
