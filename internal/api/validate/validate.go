package validate

import (
	"fmt"
	"regexp"
)

var emailRx = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// domainRx accepts bare hostnames only: no scheme, no path, no port.
var domainRx = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?(\.[a-z0-9]([a-z0-9-]*[a-z0-9])?)+$`)

// colorRx accepts CSS hex colors, short or long form.
var colorRx = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

func Email(v string) error {
	if v == "" {
		return fmt.Errorf("email is required")
	}
	if len(v) > 320 || !emailRx.MatchString(v) {
		return fmt.Errorf("invalid email")
	}
	return nil
}

// Domain validates a bare lowercase hostname such as "docs.google.com".
func Domain(v string) error {
	if v == "" {
		return fmt.Errorf("domain is required")
	}
	if len(v) > 253 || !domainRx.MatchString(v) {
		return fmt.Errorf("invalid domain")
	}
	return nil
}

func NonEmpty(field, v string) error {
	if v == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func MaxLen(field string, v *string, limit int) error {
	if v == nil {
		return nil
	}
	if len(*v) > limit {
		return fmt.Errorf("%s exceeds %d characters", field, limit)
	}
	return nil
}

// Pattern checks that an optional field compiles as a regular expression.
func Pattern(field string, v *string) error {
	if v == nil || *v == "" {
		return nil
	}
	if _, err := regexp.Compile(*v); err != nil {
		return fmt.Errorf("%s is not a valid pattern: %v", field, err)
	}
	return nil
}

// -------- Request specific helpers ----------

// CreateAccount validates input for creating a new account.
func CreateAccount(email string) error {
	return Email(email)
}

// Heartbeat validates one ingested heartbeat payload.
func Heartbeat(docIdentifier, domain, email string, title *string) error {
	if err := NonEmpty("doc_identifier", docIdentifier); err != nil {
		return err
	}
	if len(docIdentifier) > 512 {
		return fmt.Errorf("doc_identifier exceeds 512 characters")
	}
	if err := Domain(domain); err != nil {
		return err
	}
	if err := Email(email); err != nil {
		return err
	}
	return MaxLen("title", title, 1024)
}

// UpsertSelector validates a selector descriptor. The doc-id pattern must
// compile because collectors apply it verbatim.
func UpsertSelector(domain, titleSelector string, docIDPattern *string) error {
	if err := Domain(domain); err != nil {
		return err
	}
	if err := NonEmpty("titleSelector", titleSelector); err != nil {
		return err
	}
	return Pattern("docIdPattern", docIDPattern)
}

// CreateProject validates a new project. Color is optional; when present it
// must be a CSS hex color.
func CreateProject(name, color string) error {
	if err := NonEmpty("name", name); err != nil {
		return err
	}
	if len(name) > 100 {
		return fmt.Errorf("name exceeds 100 characters")
	}
	if color != "" && !colorRx.MatchString(color) {
		return fmt.Errorf("color must be a hex color like #4f46e5")
	}
	return nil
}

// DateRange validates optional YYYY-MM-DD report bounds.
var dateRx = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

func DateRange(from, to string) error {
	if from != "" && !dateRx.MatchString(from) {
		return fmt.Errorf("from must be YYYY-MM-DD")
	}
	if to != "" && !dateRx.MatchString(to) {
		return fmt.Errorf("to must be YYYY-MM-DD")
	}
	if from != "" && to != "" && from > to {
		return fmt.Errorf("from must not be after to")
	}
	return nil
}
