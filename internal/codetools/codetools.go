// Package codetools implements the thin AST code-editing helper
// (file.skeleton / symbol_logic / search_replace): the one piece of RepoMesh
// that reads and rewrites source files directly rather than through the
// persistence layer. Ported from the Python original's
// services/code_tools.py, which walks Python's ast module — this port walks
// go/ast over Go source instead, since RepoMesh's own workspace is a Go
// repo and the skeleton/symbol tools are most useful against it.
package codetools

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"

	"github.com/RSuyash/repomesh/internal/apperr"
)

type Service struct {
	workspaceRoot string
}

func NewService(workspaceRoot string) *Service {
	return &Service{workspaceRoot: workspaceRoot}
}

// Symbol is one entry of file.skeleton's symbol list.
type Symbol struct {
	Kind      string `json:"kind"`
	Name      string `json:"name"`
	Line      int    `json:"line"`
	Signature string `json:"signature,omitempty"`
	Doc       string `json:"doc,omitempty"`
}

// Skeleton is file.skeleton's result.
type Skeleton struct {
	FilePath string   `json:"file_path"`
	Language string   `json:"language"`
	Symbols  []Symbol `json:"symbols"`
	Note     string   `json:"note,omitempty"`
}

// FileSkeleton parses a Go file's top-level declarations into a symbol list.
// Non-Go files return an empty skeleton with a note, mirroring the
// original's Python-only restriction.
func (s *Service) FileSkeleton(filePath string) (*Skeleton, error) {
	resolved, err := s.resolvePath(filePath)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(resolved) != ".go" {
		return &Skeleton{
			FilePath: filePath,
			Language: strings.TrimPrefix(filepath.Ext(resolved), "."),
			Note:     "AST skeleton is currently implemented for Go files.",
		}, nil
	}

	source, err := os.ReadFile(resolved)
	if err != nil {
		return nil, apperr.Validation("failed to read file", map[string]any{"path": filePath})
	}

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, resolved, source, parser.ParseComments)
	if err != nil {
		return nil, apperr.Validation("failed to parse Go source", map[string]any{"path": filePath, "error": err.Error()})
	}

	var symbols []Symbol
	for _, decl := range file.Decls {
		if sym := declSignature(fset, decl); sym != nil {
			symbols = append(symbols, *sym)
		}
	}
	return &Skeleton{FilePath: filePath, Language: "go", Symbols: symbols}, nil
}

func declSignature(fset *token.FileSet, decl ast.Decl) *Symbol {
	switch d := decl.(type) {
	case *ast.FuncDecl:
		return &Symbol{
			Kind:      "function",
			Name:      d.Name.Name,
			Line:      fset.Position(d.Pos()).Line,
			Signature: funcSignature(d),
			Doc:       strings.TrimSpace(d.Doc.Text()),
		}
	case *ast.GenDecl:
		if d.Tok != token.TYPE {
			return nil
		}
		for _, spec := range d.Specs {
			typeSpec, ok := spec.(*ast.TypeSpec)
			if !ok {
				continue
			}
			kind := "type"
			if _, isStruct := typeSpec.Type.(*ast.StructType); isStruct {
				kind = "struct"
			} else if _, isIface := typeSpec.Type.(*ast.InterfaceType); isIface {
				kind = "interface"
			}
			return &Symbol{
				Kind: kind,
				Name: typeSpec.Name.Name,
				Line: fset.Position(typeSpec.Pos()).Line,
				Doc:  strings.TrimSpace(d.Doc.Text()),
			}
		}
	}
	return nil
}

func funcSignature(d *ast.FuncDecl) string {
	var params []string
	if d.Type.Params != nil {
		for _, field := range d.Type.Params.List {
			if len(field.Names) == 0 {
				params = append(params, "_")
				continue
			}
			for _, name := range field.Names {
				params = append(params, name.Name)
			}
		}
	}
	receiver := ""
	if d.Recv != nil && len(d.Recv.List) > 0 {
		receiver = "(receiver) "
	}
	return receiver + d.Name.Name + "(" + strings.Join(params, ", ") + ")"
}

// SymbolLogic finds a named top-level function/method/type and returns its
// exact source span.
type SymbolLogic struct {
	FilePath   string `json:"file_path"`
	SymbolName string `json:"symbol_name"`
	Kind       string `json:"kind"`
	StartLine  int    `json:"start_line"`
	EndLine    int    `json:"end_line"`
	Source     string `json:"source"`
}

func (s *Service) SymbolLogic(filePath, symbolName string) (*SymbolLogic, error) {
	resolved, err := s.resolvePath(filePath)
	if err != nil {
		return nil, err
	}
	if filepath.Ext(resolved) != ".go" {
		return nil, apperr.Validation("symbol_logic currently supports Go files only", map[string]any{"path": filePath})
	}

	source, err := os.ReadFile(resolved)
	if err != nil {
		return nil, apperr.Validation("failed to read file", map[string]any{"path": filePath})
	}
	lines := strings.Split(string(source), "\n")

	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, resolved, source, parser.ParseComments)
	if err != nil {
		return nil, apperr.Validation("failed to parse Go source", map[string]any{"path": filePath, "error": err.Error()})
	}

	var found *SymbolLogic
	ast.Inspect(file, func(n ast.Node) bool {
		if found != nil {
			return false
		}
		switch decl := n.(type) {
		case *ast.FuncDecl:
			if decl.Name.Name == symbolName {
				start := fset.Position(decl.Pos()).Line
				end := fset.Position(decl.End()).Line
				found = &SymbolLogic{
					FilePath: filePath, SymbolName: symbolName, Kind: "function",
					StartLine: start, EndLine: end, Source: sliceLines(lines, start, end),
				}
			}
		case *ast.TypeSpec:
			if decl.Name.Name == symbolName {
				start := fset.Position(decl.Pos()).Line
				end := fset.Position(decl.End()).Line
				found = &SymbolLogic{
					FilePath: filePath, SymbolName: symbolName, Kind: "type",
					StartLine: start, EndLine: end, Source: sliceLines(lines, start, end),
				}
			}
		}
		return true
	})

	if found == nil {
		return nil, apperr.Validation("symbol not found", map[string]any{"symbol_name": symbolName})
	}
	return found, nil
}

func sliceLines(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start-1:end], "\n")
}

// SearchReplaceResult is search_replace's result.
type SearchReplaceResult struct {
	FilePath      string `json:"file_path"`
	ReplacedCount int    `json:"replaced_count"`
}

// SearchReplace performs a strict-count find/replace: the literal search
// string must occur exactly expectedCount times, or the call fails with
// CONFLICT including the expected/actual counts (spec.md's code-tools
// disambiguation, carried over from the original's strict count check).
func (s *Service) SearchReplace(filePath, search, replace string, expectedCount int) (*SearchReplaceResult, error) {
	if expectedCount < 1 {
		return nil, apperr.Validation("expected_count must be >= 1", nil)
	}
	resolved, err := s.resolvePath(filePath)
	if err != nil {
		return nil, err
	}

	source, err := os.ReadFile(resolved)
	if err != nil {
		return nil, apperr.Validation("failed to read file", map[string]any{"path": filePath})
	}

	actual := strings.Count(string(source), search)
	if actual != expectedCount {
		return nil, apperr.Conflict("search/replace strict count mismatch", map[string]any{
			"expected_count": expectedCount,
			"actual_count":   actual,
		})
	}

	updated := strings.Replace(string(source), search, replace, expectedCount)
	if err := os.WriteFile(resolved, []byte(updated), 0o644); err != nil {
		return nil, apperr.Internal("failed to write file", err)
	}
	return &SearchReplaceResult{FilePath: filePath, ReplacedCount: expectedCount}, nil
}

// resolvePath resolves filePath relative to the workspace root (or takes it
// as absolute) and rejects any path that escapes the root — the same
// workspace-root + no-escape rule the Adapter Service applies to cwd.
func (s *Service) resolvePath(filePath string) (string, error) {
	root, err := filepath.Abs(s.workspaceRoot)
	if err != nil {
		return "", apperr.Internal("failed to resolve workspace root", err)
	}

	var candidate string
	if filepath.IsAbs(filePath) {
		candidate = filepath.Clean(filePath)
	} else {
		candidate = filepath.Join(root, filePath)
	}
	absCandidate, err := filepath.Abs(candidate)
	if err != nil {
		return "", apperr.Internal("failed to resolve path", err)
	}

	if absCandidate != root && !strings.HasPrefix(absCandidate, root+string(filepath.Separator)) {
		return "", apperr.Validation("path escapes workspace root", map[string]any{
			"workspace_root": root,
			"path":           absCandidate,
		})
	}

	info, err := os.Stat(absCandidate)
	if err != nil {
		return "", apperr.Validation("file not found", map[string]any{"path": absCandidate})
	}
	if info.IsDir() {
		return "", apperr.Validation("expected file path, got directory", map[string]any{"path": absCandidate})
	}
	return absCandidate, nil
}
