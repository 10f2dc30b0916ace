package main

import (
	"fmt"
	"go/parser"
	"go/token"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	modulePath   = "agora"
	contextsRoot = "contexts"
)

type violation struct {
	File   string
	Line   int
	Import string
	Rule   string
}

// layerRule lists the in-service layers a layer may import. Layers without a
// rule (adapters, module.go) may import any layer of their own service.
type layerRule struct {
	allowedLayers []string
	thirdParty    bool
}

var layerRules = map[string]layerRule{
	"domain":      {allowedLayers: []string{"domain"}},
	"ports":       {allowedLayers: []string{"domain", "ports"}},
	"application": {allowedLayers: []string{"application", "domain", "ports"}},
	"transport":   {allowedLayers: []string{"transport"}, thirdParty: true},
}

// Packages only the composition root may import.
var wiringOnly = []string{
	modulePath + "/cmd",
	modulePath + "/internal/app",
}

func main() {
	violations := collectViolations(contextsRoot)
	if len(violations) == 0 {
		fmt.Println("boundary checks passed")
		return
	}

	sort.Slice(violations, func(i, j int) bool {
		if violations[i].File != violations[j].File {
			return violations[i].File < violations[j].File
		}
		if violations[i].Line != violations[j].Line {
			return violations[i].Line < violations[j].Line
		}
		return violations[i].Import < violations[j].Import
	})

	fmt.Println("boundary violations found:")
	for _, v := range violations {
		fmt.Printf("- %s:%d imports %q (%s)\n", v.File, v.Line, v.Import, v.Rule)
	}
	os.Exit(1)
}

// source locates a file as contexts/<context>/<service>/<layer>/...
type source struct {
	file    string
	context string
	service string
	layer   string
}

func (s source) servicePrefix() string {
	return fmt.Sprintf("%s/%s/%s/%s", modulePath, contextsRoot, s.context, s.service)
}

func collectViolations(root string) []violation {
	var violations []violation

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(path), "/")
		if len(parts) < 4 || parts[0] != contextsRoot {
			return nil
		}
		src := source{
			file:    filepath.ToSlash(path),
			context: parts[1],
			service: parts[2],
			layer:   parts[3],
		}
		violations = append(violations, validateFile(path, src)...)
		return nil
	})

	return violations
}

func validateFile(path string, src source) []violation {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ImportsOnly)
	if err != nil {
		return []violation{{File: src.file, Line: 1, Rule: "file must parse"}}
	}

	var violations []violation
	for _, imp := range file.Imports {
		importPath := strings.Trim(imp.Path.Value, "\"")
		line := fset.Position(imp.Pos()).Line
		if rule := checkImport(src, importPath); rule != "" {
			violations = append(violations, violation{
				File:   src.file,
				Line:   line,
				Import: importPath,
				Rule:   rule,
			})
		}
	}
	return violations
}

// checkImport returns the first rule importPath breaks, or "".
func checkImport(src source, importPath string) string {
	if isStdlib(importPath) {
		return ""
	}
	if isAllowed(importPath, wiringOnly) {
		return "contexts must not import the composition root"
	}

	contextsPrefix := modulePath + "/" + contextsRoot + "/"
	if strings.HasPrefix(importPath, contextsPrefix) && !hasPrefix(importPath, src.servicePrefix()) {
		return fmt.Sprintf("%s must not import another service", src.service)
	}

	rule, ok := layerRules[src.layer]
	if !ok {
		return ""
	}
	if hasPrefix(importPath, src.servicePrefix()) {
		for _, layer := range rule.allowedLayers {
			if hasPrefix(importPath, src.servicePrefix()+"/"+layer) {
				return ""
			}
		}
		return fmt.Sprintf("%s must not import %s", src.layer, layerOf(src, importPath))
	}
	if strings.HasPrefix(importPath, modulePath+"/internal/") {
		return fmt.Sprintf("%s must not import runtime infrastructure", src.layer)
	}
	if !rule.thirdParty {
		return fmt.Sprintf("%s must only import the standard library and its own service", src.layer)
	}
	return ""
}

func layerOf(src source, importPath string) string {
	if importPath == src.servicePrefix() {
		return "the service root"
	}
	rest := strings.TrimPrefix(importPath, src.servicePrefix()+"/")
	if idx := strings.Index(rest, "/"); idx != -1 {
		rest = rest[:idx]
	}
	return rest
}

func hasPrefix(path string, prefix string) bool {
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}

func isAllowed(importPath string, allowedPrefixes []string) bool {
	for _, p := range allowedPrefixes {
		if hasPrefix(importPath, p) {
			return true
		}
	}
	return false
}

func isStdlib(importPath string) bool {
	if hasPrefix(importPath, modulePath) {
		return false
	}
	first := importPath
	if idx := strings.Index(first, "/"); idx != -1 {
		first = first[:idx]
	}
	return !strings.Contains(first, ".")
}
