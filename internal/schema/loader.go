package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

// Parse reads a schema document in JSON or YAML. Property order is preserved.
func Parse(data []byte) (*Document, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, &SchemaError{Code: ErrDocument, Message: "empty schema document"}
	}

	var doc Document
	var err error
	if trimmed[0] == '{' {
		err = json.Unmarshal(trimmed, &doc)
	} else {
		err = yaml.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, &SchemaError{Code: ErrDocument, Message: err.Error()}
	}
	return &doc, nil
}

// ParseCUE reads a schema written in CUE. When the file has a top-level
// "schema" field that field is the document; otherwise the whole file is.
// Field declaration order is preserved.
//
//	schema: {
//		type: "object"
//		properties: {
//			id: type: "string"
//			num: type: "number"
//		}
//	}
func ParseCUE(filename string, src []byte) (*Document, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(src, cue.Filename(filename))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	if s := v.LookupPath(cue.ParsePath("schema")); s.Exists() {
		v = s
	}
	return documentFromCUE(v, "")
}

// LoadFile reads a schema document, choosing the format from the extension.
func LoadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return ParseCUE(path, data)
	case ".json", ".yaml", ".yml":
		return Parse(data)
	default:
		return nil, &SchemaError{
			Code:    ErrDocument,
			Message: fmt.Sprintf("unsupported schema file extension %q (want .json, .yaml, .yml or .cue)", filepath.Ext(path)),
		}
	}
}

func documentFromCUE(v cue.Value, path string) (*Document, error) {
	if v.Kind() == cue.NullKind {
		return nil, nil
	}
	if v.Kind() != cue.StructKind {
		return nil, &SchemaError{
			Path:    path,
			Code:    ErrDocument,
			Message: fmt.Sprintf("schema node must be a struct, got %s", v.Kind()),
			Pos:     v.Pos(),
		}
	}

	doc := &Document{}
	var err error
	if doc.Type, err = cueString(v, "type"); err != nil {
		return nil, err
	}
	if doc.Description, err = cueString(v, "description"); err != nil {
		return nil, err
	}

	if props := v.LookupPath(cue.ParsePath("properties")); props.Exists() {
		iter, err := props.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		doc.Properties = Properties{}
		for iter.Next() {
			name := iter.Selector().Unquoted()
			child, err := documentFromCUE(iter.Value(), joinPath(path, name))
			if err != nil {
				return nil, err
			}
			doc.Properties = append(doc.Properties, Property{Name: name, Schema: child})
		}
	}

	if items := v.LookupPath(cue.ParsePath("items")); items.Exists() {
		if doc.Items, err = documentFromCUE(items, path+"[]"); err != nil {
			return nil, err
		}
	}

	if ext := v.LookupPath(cue.ParsePath("extends")); ext.Exists() {
		var x any
		if err := ext.Decode(&x); err != nil {
			return nil, formatCUEError(err)
		}
		doc.Extends = x
	}

	return doc, nil
}

func cueString(v cue.Value, field string) (string, error) {
	f := v.LookupPath(cue.ParsePath(field))
	if !f.Exists() {
		return "", nil
	}
	s, err := f.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return &SchemaError{Code: ErrDocument, Message: err.Error()}
	}

	first := errs[0]
	schemaErr := &SchemaError{Code: ErrDocument, Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		schemaErr.Pos = positions[0]
	}
	return schemaErr
}
