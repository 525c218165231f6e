// Package noosexit keeps process exits in one place. Commands return errors
// from run() and main.main is the only function allowed to end the process,
// and then only through log.Fatal*, after run's deferred cleanup has finished.
package noosexit

import (
	"go/ast"
	"go/types"
	"path/filepath"
	"strings"

	"golang.org/x/tools/go/analysis"
)

// Analyzer reports os.Exit anywhere in a main package, and log.Fatal* outside
// main.main.
var Analyzer = &analysis.Analyzer{
	Name: "noosexit",
	Doc:  "reports os.Exit in main packages and log.Fatal outside main.main",
	Run:  run,
}

var fatalFuncs = map[string]bool{
	"Fatal":   true,
	"Fatalf":  true,
	"Fatalln": true,
}

func run(pass *analysis.Pass) (interface{}, error) {
	if pass.Pkg.Name() != "main" {
		return nil, nil
	}

	for _, file := range pass.Files {
		// Test mains generated by go test live in the build cache.
		if isGoBuildCacheFile(pass.Fset.File(file.Pos()).Name()) {
			continue
		}

		for _, decl := range file.Decls {
			fn, ok := decl.(*ast.FuncDecl)
			if !ok || fn.Body == nil {
				continue
			}
			isMain := fn.Name.Name == "main" && fn.Recv == nil

			ast.Inspect(fn.Body, func(n ast.Node) bool {
				call, ok := n.(*ast.CallExpr)
				if !ok {
					return true
				}

				pkgPath, name, ok := calledPackageFunc(pass, call)
				if !ok {
					return true
				}

				switch {
				case pkgPath == "os" && name == "Exit" && isMain:
					pass.Reportf(call.Pos(), "avoid using os.Exit in main.main")
				case pkgPath == "os" && name == "Exit":
					pass.Reportf(call.Pos(), "os.Exit in %s skips deferred cleanup, return an error instead", fn.Name.Name)
				case pkgPath == "log" && fatalFuncs[name] && !isMain:
					pass.Reportf(call.Pos(), "log.%s in %s skips deferred cleanup, return an error instead", name, fn.Name.Name)
				}

				return true
			})
		}
	}

	return nil, nil
}

// calledPackageFunc resolves pkg.Func(...) calls through type information so
// renamed imports are recognised and local variables named os or log are not.
func calledPackageFunc(pass *analysis.Pass, call *ast.CallExpr) (string, string, bool) {
	sel, ok := call.Fun.(*ast.SelectorExpr)
	if !ok {
		return "", "", false
	}

	ident, ok := sel.X.(*ast.Ident)
	if !ok {
		return "", "", false
	}

	pkgName, ok := pass.TypesInfo.Uses[ident].(*types.PkgName)
	if !ok {
		return "", "", false
	}

	return pkgName.Imported().Path(), sel.Sel.Name, true
}

func isGoBuildCacheFile(path string) bool {
	return strings.Contains(filepath.ToSlash(path), "/go-build/")
}
