package functions

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/invopop/jsonschema"
)

const (
	defaultFieldNotesLimit = 20
	maxFieldNotesLimit     = 100
	minSubjectLength       = 3
	minBodyLength          = 5
)

type NoArgs struct{}

type ProjectArgs struct {
	ProjectID string `json:"projectId" jsonschema:"description=Project identifier such as PRJ-2024-001"`
}

type FieldNotesArgs struct {
	ProjectID string `json:"projectId" jsonschema:"description=Project identifier such as PRJ-2024-001"`
	Keyword   string `json:"keyword,omitempty" jsonschema:"description=Case-insensitive keyword to search for; empty matches every note"`
	Limit     *int   `json:"limit,omitempty" jsonschema:"minimum=1,maximum=100,default=20,description=Maximum number of notes to return"`
}

type LaborDetailArgs struct {
	ProjectID string `json:"projectId" jsonschema:"description=Project identifier such as PRJ-2024-001"`
	SOVLineID string `json:"sovLineId" jsonschema:"description=Schedule-of-values line identifier"`
}

type ChangeOrderArgs struct {
	ProjectID string `json:"projectId" jsonschema:"description=Project identifier such as PRJ-2024-001"`
	CONumber  string `json:"coNumber" jsonschema:"description=Change order number such as CO-012"`
}

type RFIArgs struct {
	ProjectID string `json:"projectId" jsonschema:"description=Project identifier such as PRJ-2024-001"`
	RFINumber string `json:"rfiNumber" jsonschema:"description=RFI number such as RFI-007"`
}

type WhatIfMarginArgs struct {
	ProjectID      string   `json:"projectId" jsonschema:"description=Project identifier such as PRJ-2024-001"`
	RecoveryAmount *float64 `json:"recoveryAmount" jsonschema:"minimum=0,description=Dollar amount assumed recovered"`
}

type EmailArgs struct {
	To      string `json:"to" jsonschema:"format=email,description=Recipient email address"`
	Subject string `json:"subject" jsonschema:"minLength=3,description=Email subject"`
	Body    string `json:"body" jsonschema:"minLength=5,description=Plain-text email body"`
}

func (a ProjectArgs) Validate() error {
	return requireString("projectId", a.ProjectID)
}

func (a FieldNotesArgs) Validate() error {
	if err := requireString("projectId", a.ProjectID); err != nil {
		return err
	}
	if a.Limit != nil && (*a.Limit < 1 || *a.Limit > maxFieldNotesLimit) {
		return fmt.Errorf("limit must be between 1 and %d, got %d", maxFieldNotesLimit, *a.Limit)
	}
	return nil
}

// EffectiveLimit applies the default page size.
func (a FieldNotesArgs) EffectiveLimit() int {
	if a.Limit == nil {
		return defaultFieldNotesLimit
	}
	return *a.Limit
}

func (a LaborDetailArgs) Validate() error {
	return errors.Join(requireString("projectId", a.ProjectID), requireString("sovLineId", a.SOVLineID))
}

func (a ChangeOrderArgs) Validate() error {
	return errors.Join(requireString("projectId", a.ProjectID), requireString("coNumber", a.CONumber))
}

func (a RFIArgs) Validate() error {
	return errors.Join(requireString("projectId", a.ProjectID), requireString("rfiNumber", a.RFINumber))
}

func (a WhatIfMarginArgs) Validate() error {
	if err := requireString("projectId", a.ProjectID); err != nil {
		return err
	}
	if a.RecoveryAmount == nil {
		return errors.New("recoveryAmount is required")
	}
	if *a.RecoveryAmount < 0 {
		return fmt.Errorf("recoveryAmount must be >= 0, got %v", *a.RecoveryAmount)
	}
	return nil
}

func (a EmailArgs) Validate() error {
	var errs []error
	if addr, err := mail.ParseAddress(a.To); err != nil || addr.Address != strings.TrimSpace(a.To) {
		errs = append(errs, fmt.Errorf("to must be a valid email address, got %q", a.To))
	}
	if len([]rune(strings.TrimSpace(a.Subject))) < minSubjectLength {
		errs = append(errs, fmt.Errorf("subject must be at least %d characters", minSubjectLength))
	}
	if len([]rune(strings.TrimSpace(a.Body))) < minBodyLength {
		errs = append(errs, fmt.Errorf("body must be at least %d characters", minBodyLength))
	}
	return errors.Join(errs...)
}

func requireString(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", name)
	}
	return nil
}

type validatable interface {
	Validate() error
}

// decodeArgs maps the model's argument record onto T and validates it.
func decodeArgs[T validatable](args map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(args)
	if err != nil {
		return out, fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode arguments: %w", err)
	}
	if err := out.Validate(); err != nil {
		return out, err
	}
	return out, nil
}

// validator adapts decodeArgs to agent.ValidateFn.
func validator[T validatable]() func(args map[string]any) error {
	return func(args map[string]any) error {
		_, err := decodeArgs[T](args)
		return err
	}
}

func (NoArgs) Validate() error { return nil }

// schemaFor reflects the model-facing JSON schema of an argument struct.
func schemaFor[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	schema.Version = ""
	schema.ID = ""
	return schema
}
