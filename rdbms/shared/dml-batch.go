package shared

import (
	"github.com/relloyd/healthpipe/logger"
)

// SqlStatementGeneratorConfig describes the target of generated DML.
// OutputTable and Columns must already be quoted for the target database.
type SqlStatementGeneratorConfig struct {
	Log         logger.Logger `errorTxt:"logger" mandatory:"yes"`
	OutputTable string        `errorTxt:"output table" mandatory:"yes"`
	Columns     []string      `errorTxt:"output columns" mandatory:"yes"`
	Placeholder func(position int) string
}

type sqlCoreCfg struct {
	sqlStmt                string
	sqlStmtTemplate        string
	sqlValues              []interface{} // slice to hold data values for all rows in batch
	batchSize              int
	rowsInBatch            int
	previousNumRowsInBatch int
}

func defaultPlaceholder(int) string {
	return "?"
}
