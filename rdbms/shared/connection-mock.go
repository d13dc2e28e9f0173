package shared

import (
	"errors"
	"strings"
	"sync"

	"github.com/relloyd/healthpipe/constants"
	"github.com/relloyd/healthpipe/logger"
	"golang.org/x/net/context"
)

var errTxDone = errors.New("transaction has already been committed or rolled back")

// MockStatement is a statement seen by MockConnector.
type MockStatement struct {
	Query     string
	Args      []interface{}
	Committed bool // true once the transaction the statement ran in has committed. Always true outside a transaction.
}

// MockConnector is an in-memory Connector that records the statements it is asked to execute.
// Set FailWhen to inject errors: a non-nil return value is returned by the Exec call.
type MockConnector struct {
	Log      logger.Logger
	FailWhen func(query string) error
	mu       sync.Mutex
	stmts    []*MockStatement
	closed   bool
}

func NewMockConnector(log logger.Logger) *MockConnector {
	return &MockConnector{Log: log}
}

func (m *MockConnector) Begin(ctx context.Context) (Transacter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &mockTx{conn: m, ctx: ctx}, nil
}

func (m *MockConnector) Exec(query string, args ...interface{}) (Result, error) {
	return m.ExecContext(context.Background(), query, args...)
}

func (m *MockConnector) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	if _, err := m.exec(ctx, query, args, true); err != nil {
		return nil, err
	}
	return mockResult(0), nil
}

func (m *MockConnector) exec(ctx context.Context, query string, args []interface{}, committed bool) (*MockStatement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.FailWhen != nil {
		if err := m.FailWhen(query); err != nil {
			return nil, err
		}
	}
	s := &MockStatement{Query: query, Args: append([]interface{}(nil), args...), Committed: committed}
	m.mu.Lock()
	m.stmts = append(m.stmts, s)
	m.mu.Unlock()
	if m.Log != nil {
		m.Log.Debug("mock connector executed: ", query)
	}
	return s, nil
}

func (m *MockConnector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *MockConnector) GetType() string {
	return constants.ConnectionTypeMockWarehouse
}

// Statements returns copies of the committed statements, in execution order.
func (m *MockConnector) Statements() []MockStatement {
	m.mu.Lock()
	defer m.mu.Unlock()
	retval := make([]MockStatement, 0, len(m.stmts))
	for _, s := range m.stmts {
		if s.Committed {
			retval = append(retval, *s)
		}
	}
	return retval
}

// StatementsWithPrefix returns the committed statements whose SQL starts with prefix, ignoring case.
func (m *MockConnector) StatementsWithPrefix(prefix string) []MockStatement {
	var retval []MockStatement
	for _, s := range m.Statements() {
		if strings.HasPrefix(strings.ToUpper(s.Query), strings.ToUpper(prefix)) {
			retval = append(retval, s)
		}
	}
	return retval
}

func (m *MockConnector) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type mockTx struct {
	conn    *MockConnector
	ctx     context.Context
	pending []*MockStatement
	done    bool
}

func (t *mockTx) Exec(query string, args ...interface{}) (Result, error) {
	return t.ExecContext(t.ctx, query, args...)
}

func (t *mockTx) ExecContext(ctx context.Context, query string, args ...interface{}) (Result, error) {
	if t.done {
		return nil, errTxDone
	}
	s, err := t.conn.exec(ctx, query, args, false)
	if err != nil {
		return nil, err
	}
	t.pending = append(t.pending, s)
	return mockResult(0), nil
}

func (t *mockTx) Commit() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	for _, s := range t.pending {
		s.Committed = true
	}
	return nil
}

func (t *mockTx) Rollback() error {
	if t.done {
		return errTxDone
	}
	t.done = true
	t.conn.mu.Lock()
	defer t.conn.mu.Unlock()
	// Drop the statements so they are never reported.
	keep := t.conn.stmts[:0]
	for _, s := range t.conn.stmts {
		if !containsStmt(t.pending, s) {
			keep = append(keep, s)
		}
	}
	t.conn.stmts = keep
	return nil
}

func containsStmt(l []*MockStatement, s *MockStatement) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

type mockResult int64

func (r mockResult) LastInsertId() (int64, error) { return 0, nil }
func (r mockResult) RowsAffected() (int64, error) { return int64(r), nil }
