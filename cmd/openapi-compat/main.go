// Command openapi-compat fails when a revision of the API description drops a
// path, operation or response code that a base revision promised. The
// revision defaults to the description embedded in the server binary.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"inkwell/docs"

	"gopkg.in/yaml.v3"
)

var httpMethods = []string{"get", "put", "post", "delete", "patch", "head", "options"}

// surface is the promised part of an API description: paths, then methods,
// then response codes.
type surface map[string]map[string][]string

// document is the subset of a Swagger/OpenAPI file the check reads. Path items
// stay raw so path-level keys like parameters are skipped, not mis-decoded.
type document struct {
	Paths map[string]map[string]yaml.Node `yaml:"paths"`
}

type operationDoc struct {
	Responses map[string]yaml.Node `yaml:"responses"`
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("openapi-compat", flag.ContinueOnError)
	fs.SetOutput(stderr)
	basePath := fs.String("base", "", "base swagger.yaml path")
	revisionPath := fs.String("revision", "", "revision swagger.yaml path (default: embedded docs)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if strings.TrimSpace(*basePath) == "" {
		fmt.Fprintln(stderr, "usage: openapi-compat -base <path> [-revision <path>]")
		return 2
	}

	base, err := loadFile(*basePath)
	if err != nil {
		fmt.Fprintf(stderr, "base: %v\n", err)
		return 1
	}
	revision, err := parseSpec(docs.Raw())
	if *revisionPath != "" {
		revision, err = loadFile(*revisionPath)
	}
	if err != nil {
		fmt.Fprintf(stderr, "revision: %v\n", err)
		return 1
	}

	if broken := compare(base, revision); len(broken) > 0 {
		fmt.Fprintf(stderr, "%d breaking change(s):\n", len(broken))
		for _, b := range broken {
			fmt.Fprintln(stderr, "  "+b)
		}
		return 1
	}
	fmt.Fprintln(stdout, "no breaking changes")
	return 0
}

func loadFile(path string) (surface, error) {
	raw, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return nil, err
	}
	return parseSpec(raw)
}

func parseSpec(raw []byte) (surface, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc.Paths == nil {
		return nil, errors.New("document has no paths")
	}

	out := make(surface, len(doc.Paths))
	for path, item := range doc.Paths {
		for key, node := range item {
			method := strings.ToLower(strings.TrimSpace(key))
			if !slices.Contains(httpMethods, method) {
				continue
			}
			var op operationDoc
			if err := node.Decode(&op); err != nil {
				return nil, fmt.Errorf("%s %s: %w", strings.ToUpper(method), path, err)
			}
			codes := make([]string, 0, len(op.Responses))
			for code := range op.Responses {
				codes = append(codes, strings.ToLower(strings.TrimSpace(code)))
			}
			slices.Sort(codes)
			if out[path] == nil {
				out[path] = make(map[string][]string)
			}
			out[path][method] = codes
		}
	}
	return out, nil
}

// compare lists, in sorted order, everything base promises that revision no
// longer does. Additions are never breaking.
func compare(base, revision surface) []string {
	var broken []string
	for path, ops := range base {
		revOps, ok := revision[path]
		if !ok {
			broken = append(broken, "removed path: "+path)
			continue
		}
		for method, codes := range ops {
			revCodes, ok := revOps[method]
			if !ok {
				broken = append(broken, fmt.Sprintf("removed operation: %s %s", strings.ToUpper(method), path))
				continue
			}
			for _, code := range codes {
				if !slices.Contains(revCodes, code) {
					broken = append(broken, fmt.Sprintf("removed response code: %s %s -> %s", strings.ToUpper(method), path, strings.ToUpper(code)))
				}
			}
		}
	}
	slices.Sort(broken)
	return broken
}
