package components

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	c "github.com/relloyd/healthpipe/constants"
	"github.com/relloyd/healthpipe/helper"
	"github.com/relloyd/healthpipe/logger"
	"github.com/relloyd/healthpipe/pipeline"
	"github.com/relloyd/healthpipe/rdbms"
	"github.com/relloyd/healthpipe/rdbms/shared"
	"golang.org/x/net/context"
)

// CsvLoader streams a CSV object from storage into a warehouse table.
type CsvLoader struct {
	Log        logger.Logger
	Storage    StorageFactory
	Db         shared.Connector
	Dialect    rdbms.Dialect
	BatchSize  int // rows per INSERT statement
	SampleRows int // rows read before the schema is fixed when autodetect is on
}

// Column is a column of the table created by CsvLoader.
type Column struct {
	Name string
	Type rdbms.ColumnType
}

type csvLoadOptions struct {
	bucket              string
	object              string
	destination         rdbms.TableRef
	delimiter           rune
	skipLeadingRows     int
	truncate            bool
	autodetect          bool
	allowJaggedRows     bool
	ignoreUnknownValues bool
}

func (l *CsvLoader) Execute(ctx context.Context, node pipeline.TaskNode) error {
	opts, err := getCsvLoadOptions(node)
	if err != nil {
		return errors.Wrapf(err, "task %v", node.ID)
	}
	log := l.Log.WithField("task", node.ID)
	client, err := l.Storage(opts.bucket)
	if err != nil {
		return errors.Wrapf(err, "unable to open bucket %v", opts.bucket)
	}
	r, err := client.Open(ctx, opts.object)
	if err != nil {
		return errors.Wrapf(err, "unable to open object %v in bucket %v", opts.object, opts.bucket)
	}
	defer func() {
		_ = r.Close()
	}()
	n, err := l.load(ctx, log, r, opts)
	if err != nil {
		return errors.Wrapf(err, "error loading %v into %v", opts.object, opts.destination)
	}
	log.Info("loaded ", n, " rows into ", opts.destination)
	return nil
}

func getCsvLoadOptions(node pipeline.TaskNode) (o csvLoadOptions, err error) {
	if f := node.Param(pipeline.ParamSourceFormat); f != "" && !strings.EqualFold(f, c.SourceFormatCsv) {
		return o, fmt.Errorf("unsupported source format %q", f)
	}
	o.bucket = node.Param(pipeline.ParamBucket)
	objects := helper.CsvToStringSliceTrimSpaces(node.Param(pipeline.ParamSourceObjects))
	if len(objects) != 1 {
		return o, fmt.Errorf("expected exactly one source object but got %v", len(objects))
	}
	o.object = objects[0]
	if o.destination, err = rdbms.ParseTableRef(node.Param(pipeline.ParamDestination)); err != nil {
		return o, err
	}
	delim := node.Param(pipeline.ParamFieldDelimiter)
	if delim == "" {
		delim = c.CsvFieldDelimiter
	}
	if utf8.RuneCountInString(delim) != 1 {
		return o, fmt.Errorf("field delimiter must be a single character, got %q", delim)
	}
	o.delimiter, _ = utf8.DecodeRuneInString(delim)
	o.skipLeadingRows = helper.GetIntFromString(node.Param(pipeline.ParamSkipLeadingRows), 0)
	if o.skipLeadingRows < 0 {
		return o, fmt.Errorf("skip leading rows must not be negative")
	}
	switch wd := node.Param(pipeline.ParamWriteDisposition); wd {
	case "", c.WriteDispositionTruncate:
		o.truncate = true
	case c.WriteDispositionAppend:
	default:
		return o, fmt.Errorf("unsupported write disposition %q", wd)
	}
	o.autodetect = helper.GetTrueFalseStringAsBool(node.Param(pipeline.ParamAutodetect))
	o.allowJaggedRows = helper.GetTrueFalseStringAsBool(node.Param(pipeline.ParamAllowJaggedRows))
	o.ignoreUnknownValues = helper.GetTrueFalseStringAsBool(node.Param(pipeline.ParamIgnoreUnknownValues))
	return o, nil
}

// load reads all records from r and writes them to the destination table.
// The table is (re)created first; rows are inserted in one transaction.
func (l *CsvLoader) load(ctx context.Context, log logger.Logger, r io.Reader, opts csvLoadOptions) (int, error) {
	cr := csv.NewReader(r)
	cr.Comma = opts.delimiter
	cr.FieldsPerRecord = -1 // row lengths are checked against the schema below.
	var header []string
	for i := 0; i < opts.skipLeadingRows; i++ {
		rec, err := cr.Read()
		if err == io.EOF {
			return 0, errors.New("no data rows found")
		}
		if err != nil {
			return 0, err
		}
		if i == 0 {
			header = rec
		}
	}
	sampleSize := l.SampleRows
	if sampleSize <= 0 {
		sampleSize = c.LoaderSchemaSampleRows
	}
	// Buffer a sample of data rows to decide the schema.
	sample := make([][]string, 0, sampleSize)
	eof := false
	for len(sample) < sampleSize {
		rec, err := cr.Read()
		if err == io.EOF {
			eof = true
			break
		}
		if err != nil {
			return 0, err
		}
		sample = append(sample, rec)
	}
	if header == nil && len(sample) == 0 {
		return 0, errors.New("no header or data rows found")
	}
	cols := InferSchema(header, sample, opts.autodetect)
	log.Debug("detected columns: ", cols)
	if err := l.createTable(ctx, opts, cols); err != nil {
		return 0, err
	}
	tx, err := l.Db.Begin(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "unable to start transaction")
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	batch, err := l.newInsertBatch(log, opts.destination, cols)
	if err != nil {
		return 0, err
	}
	rowNum := opts.skipLeadingRows
	count := 0
	addRow := func(rec []string) error {
		rowNum++
		values, err := rowValues(rec, cols, opts)
		if err != nil {
			return fmt.Errorf("row %v: %w", rowNum, err)
		}
		full, err := batch.AddValuesToBatch(values)
		if err != nil {
			return fmt.Errorf("row %v: %w", rowNum, err)
		}
		count++
		if full {
			return l.flush(ctx, tx, batch)
		}
		return nil
	}
	for _, rec := range sample {
		if err = addRow(rec); err != nil {
			return 0, err
		}
	}
	for !eof {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, err
		}
		if err = addRow(rec); err != nil {
			return 0, err
		}
	}
	if batch.RowsInBatch() > 0 {
		if err = l.flush(ctx, tx, batch); err != nil {
			return 0, err
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "unable to commit")
	}
	committed = true
	return count, nil
}

func (l *CsvLoader) batchSize() int {
	if l.BatchSize > 0 {
		return l.BatchSize
	}
	return c.LoaderInsertBatchSize
}

func (l *CsvLoader) createTable(ctx context.Context, opts csvLoadOptions, cols []Column) error {
	defs := make([]string, 0, len(cols))
	for _, col := range cols {
		defs = append(defs, l.Dialect.QuoteColumn(col.Name)+" "+l.Dialect.ColumnType(col.Type))
	}
	verb := "CREATE TABLE IF NOT EXISTS"
	if opts.truncate {
		verb = "CREATE OR REPLACE TABLE"
	}
	ddl := fmt.Sprintf("%v %v (%v)", verb, l.Dialect.QuoteTable(opts.destination), strings.Join(defs, ", "))
	if _, err := l.Db.ExecContext(ctx, ddl); err != nil {
		return errors.Wrapf(err, "error executing DDL %q", ddl)
	}
	return nil
}

func (l *CsvLoader) newInsertBatch(log logger.Logger, t rdbms.TableRef, cols []Column) (shared.SqlStmtTxtBatcher, error) {
	names := make([]string, 0, len(cols))
	for _, col := range cols {
		names = append(names, l.Dialect.QuoteColumn(col.Name))
	}
	b, err := shared.NewInsertGenerator(&shared.SqlStatementGeneratorConfig{
		Log:         log,
		OutputTable: l.Dialect.QuoteTable(t),
		Columns:     names,
		Placeholder: l.Dialect.Placeholder,
	})
	if err != nil {
		return nil, err
	}
	b.InitBatch(l.batchSize())
	return b, nil
}

func (l *CsvLoader) flush(ctx context.Context, tx shared.Transacter, batch shared.SqlStmtTxtBatcher) error {
	if _, err := tx.ExecContext(ctx, batch.GetStatement(), batch.GetValues()...); err != nil {
		return errors.Wrap(err, "error inserting batch")
	}
	batch.InitBatch(l.batchSize())
	return nil
}

// rowValues pads or truncates rec to the width of cols and converts each value to its column type.
func rowValues(rec []string, cols []Column, opts csvLoadOptions) ([]interface{}, error) {
	if len(rec) < len(cols) && !opts.allowJaggedRows {
		return nil, fmt.Errorf("expected %v values but found %v", len(cols), len(rec))
	}
	if len(rec) > len(cols) && !opts.ignoreUnknownValues {
		return nil, fmt.Errorf("found %v values but the table only has %v columns", len(rec), len(cols))
	}
	values := make([]interface{}, len(cols))
	for i, col := range cols {
		if i >= len(rec) {
			continue // missing trailing values are NULL
		}
		v, err := convertValue(rec[i], col.Type)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", col.Name, err)
		}
		values[i] = v
	}
	return values, nil
}

func convertValue(s string, t rdbms.ColumnType) (interface{}, error) {
	if t == rdbms.ColumnTypeString {
		if s == "" {
			return nil, nil
		}
		return s, nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	switch t {
	case rdbms.ColumnTypeBool:
		if !isBool(s) {
			return nil, fmt.Errorf("invalid BOOL value %q", s)
		}
		return strings.EqualFold(s, "true"), nil
	case rdbms.ColumnTypeInt:
		return strconv.ParseInt(s, 10, 64)
	case rdbms.ColumnTypeFloat:
		return strconv.ParseFloat(s, 64)
	default:
		return nil, fmt.Errorf("unsupported column type %v", t)
	}
}
