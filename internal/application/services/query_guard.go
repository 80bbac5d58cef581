package services

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	"github.com/pingcap/tidb/pkg/parser/format"
	"github.com/pingcap/tidb/pkg/parser/test_driver" // Using test_driver for ValueExpr

	"github.com/eskills-store/backend/pkg/constants"
)

// maxReportRows caps how many rows a report query may return
const maxReportRows = 1000

// allowedReportTables are the tables report queries may read. Sessions are
// excluded because their rows carry bearer tokens.
var allowedReportTables = map[string]bool{
	constants.TableUser:       true,
	constants.TableCart:       true,
	constants.TableCartItem:   true,
	constants.TableEnrollment: true,
	constants.TableOrder:      true,
	constants.TableOrderItem:  true,
	constants.TableCoupon:     true,
}

// deniedReportColumns are never readable regardless of table
var deniedReportColumns = map[string]bool{
	constants.FieldPassword: true,
	constants.FieldToken:    true,
}

// QueryGuard parses admin report SQL and enforces the reporting rules:
// a single SELECT, allowlisted tables, no credential columns, and a row
// cap injected as a LIMIT.
type QueryGuard struct {
	mu     sync.Mutex
	parser *parser.Parser
}

// NewQueryGuard creates a new QueryGuard
func NewQueryGuard() *QueryGuard {
	return &QueryGuard{
		parser: parser.New(),
	}
}

// ValidateAndCap parses the SQL, validates it against the reporting rules,
// and returns the statement with the row cap applied.
func (g *QueryGuard) ValidateAndCap(sqlText string) (string, error) {
	// The parser keeps internal state between calls
	g.mu.Lock()
	defer g.mu.Unlock()

	// 1. Parse
	stmtNodes, _, err := g.parser.Parse(sqlText, "", "")
	if err != nil {
		return "", fmt.Errorf("SQL parse error: %v", err)
	}
	if len(stmtNodes) != 1 {
		return "", fmt.Errorf("only single SQL statements are allowed")
	}

	// 2. Only allow SELECT statements
	selectStmt, ok := stmtNodes[0].(*ast.SelectStmt)
	if !ok {
		return "", fmt.Errorf("only SELECT statements are allowed in reports")
	}

	// 3. Walk the tree for table and column violations
	visitor := &reportVisitor{tables: make(map[string]bool)}
	selectStmt.Accept(visitor)
	if visitor.err != nil {
		return "", visitor.err
	}

	// SELECT * on users would expose the password hash
	if visitor.hasWildcard && visitor.tables[constants.TableUser] {
		return "", fmt.Errorf("select explicit columns when querying '%s'", constants.TableUser)
	}

	// 4. Inject or tighten the row cap
	applyRowCap(selectStmt)

	// 5. Restore SQL
	var sb strings.Builder
	restoreCtx := format.NewRestoreCtx(format.DefaultRestoreFlags, &sb)
	if err := selectStmt.Restore(restoreCtx); err != nil {
		return "", fmt.Errorf("SQL restore error: %v", err)
	}

	return sb.String(), nil
}

// applyRowCap sets LIMIT maxReportRows unless a tighter one is present
func applyRowCap(stmt *ast.SelectStmt) {
	if stmt.Limit != nil {
		if ve, ok := stmt.Limit.Count.(*test_driver.ValueExpr); ok {
			if ve.GetUint64() <= maxReportRows {
				return
			}
		}
	}

	capExpr := &test_driver.ValueExpr{}
	capExpr.SetUint64(maxReportRows)

	if stmt.Limit == nil {
		stmt.Limit = &ast.Limit{Count: capExpr}
		return
	}
	stmt.Limit.Count = capExpr
}

// reportVisitor collects table references and rejects anything outside the
// reporting allowlist.
type reportVisitor struct {
	tables      map[string]bool
	hasWildcard bool
	err         error
}

func (v *reportVisitor) Enter(in ast.Node) (ast.Node, bool) {
	if v.err != nil {
		return in, true
	}

	switch node := in.(type) {
	case *ast.TableName:
		name := strings.ToLower(node.Name.O)
		if name != "" && !allowedReportTables[name] {
			v.err = fmt.Errorf("access denied: cannot read table '%s'", name)
			return in, true
		}
		v.tables[name] = true

	case *ast.ColumnName:
		col := strings.ToLower(node.Name.O)
		if deniedReportColumns[col] {
			v.err = fmt.Errorf("access denied: cannot read column '%s'", col)
			return in, true
		}

	case *ast.SelectField:
		if node.WildCard != nil {
			v.hasWildcard = true
		}
	}
	return in, false
}

func (v *reportVisitor) Leave(in ast.Node) (ast.Node, bool) {
	return in, true
}
