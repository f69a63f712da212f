package tool

import (
	"bytes"
	"go/ast"
	"go/parser"
	"go/printer"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
)

// UnresolvedFile is the sentinel used when a function's defining source file
// cannot be resolved (closures, method values, stripped binaries).
const UnresolvedFile = "/"

// FuncMeta is the textual identity of a registered function: everything the
// gateway needs to describe it and everything the registry needs to hash it.
type FuncMeta struct {
	Name      string // function base name
	File      string // defining file's base name without extension, or UnresolvedFile
	Signature string // rendered signature, e.g. "func Add(a int, b int) int"
	Doc       string // doc comment text, empty when absent
	Source    string // full source text of the declaration (doc comment included)
}

// Inspect resolves fn's source-level identity. The function's defining file
// is located via the runtime and parsed so the declaration's exact source
// text, doc comment and parameter names survive into the metadata. When the
// source cannot be found the metadata degrades to reflection-derived values
// with File set to UnresolvedFile; Inspect only fails when fn is not a
// function at all.
func Inspect(fn any) (FuncMeta, error) {
	v := reflect.ValueOf(fn)
	if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
		return FuncMeta{}, ErrInvalidInput
	}

	meta := FuncMeta{
		Name: "func",
		File: UnresolvedFile,
	}
	meta.Signature = v.Type().String()
	meta.Source = meta.Signature

	rf := runtime.FuncForPC(v.Pointer())
	if rf == nil {
		return meta, nil
	}
	meta.Name = baseFuncName(rf.Name())
	meta.Signature = strings.Replace(v.Type().String(), "func", "func "+meta.Name, 1)
	meta.Source = meta.Signature

	file, line := rf.FileLine(rf.Entry())
	src, err := os.ReadFile(file)
	if err != nil {
		return meta, nil
	}

	fset := token.NewFileSet()
	parsed, err := parser.ParseFile(fset, file, src, parser.ParseComments)
	if err != nil {
		return meta, nil
	}

	for _, decl := range parsed.Decls {
		fd, ok := decl.(*ast.FuncDecl)
		if !ok || fd.Name.Name != meta.Name {
			continue
		}
		start := fset.Position(fd.Pos()).Line
		end := fset.Position(fd.End()).Line
		if line < start || line > end {
			continue
		}

		meta.File = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		if fd.Doc != nil {
			meta.Doc = strings.TrimSpace(fd.Doc.Text())
		}
		if sig := renderSignature(fset, fd); sig != "" {
			meta.Signature = sig
		}
		if text := renderSource(fset, parsed, fd); text != "" {
			meta.Source = text
		}
		break
	}
	return meta, nil
}

// baseFuncName strips the package path and receiver from a runtime function
// name, e.g. "pkg/sub.(*T).Add-fm" -> "Add".
func baseFuncName(full string) string {
	if i := strings.LastIndex(full, "/"); i >= 0 {
		full = full[i+1:]
	}
	if i := strings.LastIndex(full, "."); i >= 0 {
		full = full[i+1:]
	}
	return strings.TrimSuffix(full, "-fm")
}

func renderSignature(fset *token.FileSet, fd *ast.FuncDecl) string {
	var buf bytes.Buffer
	if err := printer.Fprint(&buf, fset, fd.Type); err != nil {
		return ""
	}
	return strings.Replace(buf.String(), "func", "func "+fd.Name.Name, 1)
}

func renderSource(fset *token.FileSet, file *ast.File, fd *ast.FuncDecl) string {
	var buf bytes.Buffer
	node := &printer.CommentedNode{Node: fd, Comments: file.Comments}
	if err := printer.Fprint(&buf, fset, node); err != nil {
		return ""
	}
	return strings.TrimSpace(buf.String())
}
