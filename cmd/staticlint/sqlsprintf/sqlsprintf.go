package sqlsprintf

import (
	"go/ast"
	"go/types"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Analyzer reports database/sql style calls whose query argument is built
// inline with fmt.Sprintf. Values must be passed as placeholder arguments.
var Analyzer = &analysis.Analyzer{
	Name: "sqlsprintf",
	Doc:  "reports SQL queries built with fmt.Sprintf instead of placeholders",
	Run:  run,
}

var queryMethods = map[string]bool{
	"Exec":            true,
	"ExecContext":     true,
	"Query":           true,
	"QueryContext":    true,
	"QueryRow":        true,
	"QueryRowContext": true,
}

func run(pass *analysis.Pass) (interface{}, error) {
	for _, file := range pass.Files {
		ast.Inspect(file, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}

			sel, ok := call.Fun.(*ast.SelectorExpr)
			if !ok || !queryMethods[sel.Sel.Name] {
				return true
			}

			queryIndex := 0
			if strings.HasSuffix(sel.Sel.Name, "Context") {
				queryIndex = 1
			}
			if len(call.Args) <= queryIndex {
				return true
			}

			if isSprintfCall(pass, call.Args[queryIndex]) {
				pass.Reportf(call.Args[queryIndex].Pos(), "query built with fmt.Sprintf, use placeholders")
			}

			return true
		})
	}

	return nil, nil
}

func isSprintfCall(pass *analysis.Pass, expr ast.Expr) bool {
	call, ok := expr.(*ast.CallExpr)
	if !ok {
		return false
	}

	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok || sel.Sel.Name != "Sprintf" {
		return false
	}

	ident, ok := sel.X.(*ast.Ident)
	if !ok {
		return false
	}

	pkgName, ok := pass.TypesInfo.Uses[ident].(*types.PkgName)

	return ok && pkgName.Imported().Path() == "fmt"
}
