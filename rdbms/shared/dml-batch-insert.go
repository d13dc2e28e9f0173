package shared

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	h "github.com/relloyd/healthpipe/helper"
)

// SqlInsertTxtBatch implements interface SqlStmtTxtBatcher
// and is able to generate INSERT statements with batches of rows supplied.
type SqlInsertTxtBatch struct {
	SqlStatementGeneratorConfig // mandatory to be populated.
	sqlCoreCfg
}

// NewInsertGenerator creates a new SqlStmtTxtBatcher for multi-row INSERT statements.
func NewInsertGenerator(cfg *SqlStatementGeneratorConfig) (*SqlInsertTxtBatch, error) {
	if err := h.ValidateStructIsPopulated(cfg); err != nil {
		return nil, err
	}
	o := &SqlInsertTxtBatch{SqlStatementGeneratorConfig: *cfg}
	if o.Placeholder == nil {
		o.Placeholder = defaultPlaceholder
	}
	o.setupSqlStatement()
	return o, nil
}

func (o *SqlInsertTxtBatch) setupSqlStatement() {
	o.sqlStmtTemplate = `INSERT INTO <TABLE> (<TGT-COLS>) VALUES <VALUES>`
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TABLE>", o.OutputTable, 1)
	o.sqlStmtTemplate = strings.Replace(o.sqlStmtTemplate, "<TGT-COLS>", strings.Join(o.Columns, ", "), 1)
	o.Log.Debug("setup INSERT generator with SQL (VALUES pending): ", o.sqlStmtTemplate)
}

func (o *SqlInsertTxtBatch) InitBatch(batchSize int) {
	o.batchSize = batchSize
	o.rowsInBatch = 0
	// Allocate a new buffer to hold all values (args) to exec.
	o.sqlValues = make([]interface{}, 0, o.batchSize*len(o.Columns)) // many values per row in a batch.
}

func (o *SqlInsertTxtBatch) AddValuesToBatch(values []interface{}) (batchIsFull bool, err error) {
	if o.rowsInBatch >= o.batchSize {
		err = errors.New("no more rows allowed in INSERT batch")
		batchIsFull = true
		return
	}
	if len(values) != len(o.Columns) {
		err = fmt.Errorf("the number of values supplied (%v) does not match the number of table columns (%v)", len(values), len(o.Columns))
		return
	}
	o.sqlValues = append(o.sqlValues, values...)
	o.rowsInBatch++
	batchIsFull = o.rowsInBatch >= o.batchSize // caller should exec SQL when full.
	return
}

func (o *SqlInsertTxtBatch) GetValues() []interface{} {
	return o.sqlValues
}

func (o *SqlInsertTxtBatch) RowsInBatch() int {
	return o.rowsInBatch
}

// GetStatement returns INSERT SQL with bind variables for the rows added since InitBatch.
// The SQL is cached while the number of rows in each batch is unchanged.
func (o *SqlInsertTxtBatch) GetStatement() string {
	if o.previousNumRowsInBatch != o.rowsInBatch || o.sqlStmt == "" {
		allRows := make([]string, 0, o.rowsInBatch)
		valIdx := 1
		for rowIdx := 0; rowIdx < o.rowsInBatch; rowIdx++ {
			row := make([]string, 0, len(o.Columns))
			for range o.Columns {
				row = append(row, o.Placeholder(valIdx))
				valIdx++
			}
			allRows = append(allRows, "("+strings.Join(row, ", ")+")")
		}
		o.sqlStmt = strings.Replace(o.sqlStmtTemplate, "<VALUES>", strings.Join(allRows, ", "), 1)
		o.previousNumRowsInBatch = o.rowsInBatch
	}
	return o.sqlStmt
}
