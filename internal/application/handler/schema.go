package handler

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const submissionSchemaURL = "https://readykids.local/schemas/submission.schema.json"

//go:embed schema/submission.json
var submissionSchemaJSON string

var compileSubmissionSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(submissionSchemaURL, strings.NewReader(submissionSchemaJSON)); err != nil {
		return nil, fmt.Errorf("submission schema load failed: %w", err)
	}
	schema, err := c.Compile(submissionSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("submission schema compile failed: %w", err)
	}
	return schema, nil
})

// validateSubmissionShape checks the structure of a decoded submission and
// describes the first violation it finds.
func validateSubmissionShape(doc any) error {
	schema, err := compileSubmissionSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return errors.New(describe(ve))
		}
		return err
	}
	return nil
}

func describe(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	location := ve.InstanceLocation
	if location == "" {
		location = "/"
	}
	return fmt.Sprintf("Invalid submission at %s: %s", location, ve.Message)
}
