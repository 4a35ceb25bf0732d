package config

import (
	"fmt"
	"net"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/valyala/fasttemplate"
)

var chainRegexp = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_-]{0,28}$`)

// getValidationMessage returns a human-readable message for a validation error
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("must be >= %s", e.Param())
	case "max":
		return fmt.Sprintf("must be <= %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "alpha":
		return "must contain only letters"
	case "chain_name":
		return "must be a valid iptables chain name (letter first, then letters, digits, '_' or '-', at most 29 characters)"
	case "mark_rule":
		return "must be a well-formed rule specification containing {{fwmark}}"
	case "nameserver_or_empty":
		return "must be an IP address, ip:port, or empty"
	case "hostport":
		return "must be in format 'host:port'"
	default:
		return fmt.Sprintf("validation failed: %s", e.Tag())
	}
}

// ValidationError represents a single validation error with context
type ValidationError struct {
	ItemName  string // For table bases: the prefix (e.g., "wlan")
	FieldPath string // Dot-notation field path (e.g., "routing.mark_chain")
	Message   string // Human-readable error message
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("validation failed with %d error(s):\n", len(ve)))
	for i, err := range ve {
		if err.ItemName != "" {
			sb.WriteString(fmt.Sprintf("  %d. [%s] %s: %s\n", i+1, err.ItemName, err.FieldPath, err.Message))
		} else {
			sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.FieldPath, err.Message))
		}
	}
	return sb.String()
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	if err := validate.RegisterValidation("chain_name", validateChainName); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("mark_rule", validateMarkRule); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("nameserver_or_empty", validateNameserverOrEmpty); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("hostport", validateHostPort); err != nil {
		panic(err)
	}

	// Report field names by their TOML keys
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateChainName(fl validator.FieldLevel) bool {
	return chainRegexp.MatchString(fl.Field().String())
}

func validateMarkRule(fl validator.FieldLevel) bool {
	rule := fl.Field().String()
	if !strings.Contains(rule, "{{"+MARK_TMPL_FWMARK+"}}") || len(strings.Fields(rule)) <= 1 {
		return false
	}
	_, err := fasttemplate.NewTemplate(rule, "{{", "}}")
	return err == nil
}

func validateNameserverOrEmpty(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	if net.ParseIP(strings.Trim(value, "[]")) != nil {
		return true
	}
	host, port, err := net.SplitHostPort(value)
	if err != nil {
		return false
	}
	return net.ParseIP(host) != nil && isValidPort(port)
}

func validateHostPort(fl validator.FieldLevel) bool {
	_, port, err := net.SplitHostPort(fl.Field().String())
	return err == nil && isValidPort(port)
}

func isValidPort(port string) bool {
	n, err := strconv.Atoi(port)
	return err == nil && n > 0 && n <= 65535
}
