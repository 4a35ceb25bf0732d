package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// suffixRange is the number of tables reserved per prefix (suffixes 0..9).
const suffixRange = 10

// ValidateConfig validates the entire configuration and returns all validation errors
func (c *Config) ValidateConfig() error {
	var validationErrors ValidationErrors

	sections := []struct {
		name  string
		value interface{}
		isNil bool
	}{
		{"general", c.General, c.General == nil},
		{"selection", c.Selection, c.Selection == nil},
		{"routing", c.Routing, c.Routing == nil},
		{"endpoint", c.Endpoint, c.Endpoint == nil},
		{"resolver", c.Resolver, c.Resolver == nil},
		{"api", c.API, c.API == nil},
	}

	for _, section := range sections {
		if section.isNil {
			validationErrors = append(validationErrors, ValidationError{
				FieldPath: section.name,
				Message:   fmt.Sprintf("configuration must contain '%s' section", section.name),
			})
			continue
		}
		if err := validate.Struct(section.value); err != nil {
			validationErrors = append(validationErrors, convertValidatorErrors(err, section.name, "")...)
		}
	}

	if c.Routing != nil {
		validationErrors = append(validationErrors, c.validateTableBases()...)
	}

	if len(validationErrors) > 0 {
		return validationErrors
	}

	return nil
}

// validateTableBases checks prefix uniqueness and that the table ranges of
// different prefixes do not overlap.
func (c *Config) validateTableBases() ValidationErrors {
	var validationErrors ValidationErrors

	if len(c.Routing.TableBases) == 0 {
		return append(validationErrors, ValidationError{
			FieldPath: "routing.table_base",
			Message:   "at least one table base is required",
		})
	}

	seenPrefixes := make(map[string]bool)
	for i, tb := range c.Routing.TableBases {
		if tb == nil {
			continue
		}
		itemName := tb.Prefix
		if itemName == "" {
			itemName = fmt.Sprintf("table_base[%d]", i)
		}

		if seenPrefixes[tb.Prefix] {
			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: "prefix",
				Message:   fmt.Sprintf("duplicate prefix: %s", tb.Prefix),
			})
		}
		seenPrefixes[tb.Prefix] = true

		for j, other := range c.Routing.TableBases[:i] {
			if other == nil {
				continue
			}
			if tb.Base < other.Base+suffixRange && other.Base < tb.Base+suffixRange {
				validationErrors = append(validationErrors, ValidationError{
					ItemName:  itemName,
					FieldPath: "base",
					Message: fmt.Sprintf("table range %d-%d overlaps range %d-%d of table_base[%d] (%s)",
						tb.Base, tb.Base+suffixRange-1, other.Base, other.Base+suffixRange-1, j, other.Prefix),
				})
			}
		}
	}

	return validationErrors
}

// convertValidatorErrors converts go-playground/validator errors to our ValidationError format
func convertValidatorErrors(err error, fieldPrefix string, itemName string) ValidationErrors {
	var validationErrors ValidationErrors

	var validatorErrs validator.ValidationErrors
	if errors.As(err, &validatorErrs) {
		for _, e := range validatorErrs {
			fieldPath := fieldPrefix
			if e.Field() != "" {
				if fieldPrefix != "" {
					fieldPath = fieldPrefix + "." + e.Field()
				} else {
					fieldPath = e.Field()
				}
			}

			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: fieldPath,
				Message:   getValidationMessage(e),
			})
		}
	}

	return validationErrors
}
