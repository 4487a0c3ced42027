package remote

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/clapp-dev/clapp/internal/manifest"
)

//go:embed schema/index.schema.json
var indexSchemaBytes []byte

const (
	indexSchemaID    = "index.schema.json"
	manifestSchemaID = "manifest.schema.json"
)

var (
	indexSchema  *jsonschema.Schema
	recordSchema *jsonschema.Schema
	compileOnce  sync.Once
	compileErr   error
	printer      = message.NewPrinter(language.English)
)

// schemas compiles the embedded index schema and the manifest schema once.
func schemas() (*jsonschema.Schema, *jsonschema.Schema, error) {
	compileOnce.Do(func() {
		c := jsonschema.NewCompiler()
		for id, raw := range map[string][]byte{
			indexSchemaID:    indexSchemaBytes,
			manifestSchemaID: manifest.SchemaJSON(),
		} {
			doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
			if err != nil {
				compileErr = fmt.Errorf("unmarshaling %s: %w", id, err)
				return
			}
			if err := c.AddResource(id, doc); err != nil {
				compileErr = fmt.Errorf("adding schema resource %s: %w", id, err)
				return
			}
		}
		if indexSchema, compileErr = c.Compile(indexSchemaID); compileErr != nil {
			compileErr = fmt.Errorf("compiling index schema: %w", compileErr)
			return
		}
		if recordSchema, compileErr = c.Compile(manifestSchemaID); compileErr != nil {
			compileErr = fmt.Errorf("compiling manifest schema: %w", compileErr)
		}
	})
	return indexSchema, recordSchema, compileErr
}

// checkDocument validates the decoded index document against the index
// schema.
func checkDocument(inst any) error {
	idx, _, err := schemas()
	if err != nil {
		return err
	}
	if err := idx.Validate(inst); err != nil {
		return fmt.Errorf("index does not match schema: %s", describe(err))
	}
	return nil
}

// checkRecord validates one decoded package record against the manifest
// schema.
func checkRecord(inst any) error {
	_, rec, err := schemas()
	if err != nil {
		return err
	}
	if err := rec.Validate(inst); err != nil {
		return fmt.Errorf("%s", describe(err))
	}
	return nil
}

// describe flattens a schema validation error into one line of leaf
// messages.
func describe(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	var msgs []string
	collect(ve, &msgs)
	if len(msgs) == 0 {
		return ve.Error()
	}
	return strings.Join(msgs, "; ")
}

func collect(ve *jsonschema.ValidationError, msgs *[]string) {
	if len(ve.Causes) == 0 {
		if ve.ErrorKind == nil {
			return
		}
		loc := "/" + strings.Join(ve.InstanceLocation, "/")
		*msgs = append(*msgs, loc+": "+ve.ErrorKind.LocalizedString(printer))
		return
	}
	for _, c := range ve.Causes {
		collect(c, msgs)
	}
}
