// Package jsonl seeds store tables from JSON-lines data. Column names are
// treated as gjson paths into each line, so nested values can feed flat
// columns. Values which do not correspond to a table column are ignored.
package jsonl

import (
	"bufio"
	"context"
	"io"

	"github.com/tidwall/gjson"

	"github.com/go-tabular/tabular"
	errors "github.com/go-tabular/tabular/errors"
)

// LoaderConf configures a JSONL Loader
type LoaderConf struct {
	BatchSize     int // Rows inserted per store round-trip. Defaults to 128.
	MaxBufferSize int // Maximum size in bytes of the buffer used to read lines
}

// Loader appends rows parsed from JSONL data to an existing table
type Loader struct {
	conf *LoaderConf
}

// CreateLoader returns a new JSONL Loader
func CreateLoader(conf *LoaderConf) *Loader {
	if conf == nil {
		conf = &LoaderConf{}
	}
	if conf.BatchSize == 0 {
		conf.BatchSize = 128
	}
	if conf.MaxBufferSize == 0 {
		conf.MaxBufferSize = bufio.MaxScanTokenSize
	}
	return &Loader{conf: conf}
}

// Load parses JSONL from r and appends one row per line to the given table,
// returning the number of rows created. Rows are created through the store's
// single-row path so they receive server-assigned identities.
func (l *Loader) Load(ctx context.Context, store tabular.Store, tableID string, r io.Reader) (int, error) {
	table, err := store.GetTable(ctx, tableID)
	if err != nil {
		return 0, err
	}
	if len(table.Columns) == 0 {
		return 0, errors.ValidationError{Reason: "table " + tableID + " has no columns to load into"}
	}
	columns := table.OrderedColumns()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), l.conf.MaxBufferSize)

	created := 0
	writes := make([]tabular.CellWrite, 0, l.conf.BatchSize*len(columns))
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		row, err := store.CreateRow(ctx, tableID)
		if err != nil {
			return created, err
		}
		for _, col := range columns {
			result := gjson.Get(line, col.Name)
			if !result.Exists() || result.Type == gjson.Null {
				continue
			}
			writes = append(writes, tabular.CellWrite{
				RowID:    row.ID,
				ColumnID: col.ID,
				Value:    tabular.Text(result.String()),
			})
		}
		created++
		if created%l.conf.BatchSize == 0 {
			if err := flush(ctx, store, &writes); err != nil {
				return created, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return created, err
	}
	if err := flush(ctx, store, &writes); err != nil {
		return created, err
	}
	return created, nil
}

func flush(ctx context.Context, store tabular.Store, writes *[]tabular.CellWrite) error {
	if len(*writes) == 0 {
		return nil
	}
	if err := store.UpdateCells(ctx, *writes); err != nil {
		return err
	}
	*writes = (*writes)[:0]
	return nil
}
