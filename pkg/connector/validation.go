package connector

import (
	"context"
	"time"
)

// Severity indicates the severity level of a validation check.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

func (s Severity) rank() int {
	switch s {
	case SeverityInfo:
		return 0
	case SeverityWarning:
		return 1
	case SeverityError:
		return 2
	case SeverityCritical:
		return 3
	}
	return 2
}

// CheckStatus indicates the result of a validation check.
type CheckStatus string

const (
	CheckStatusPassed  CheckStatus = "passed"
	CheckStatusFailed  CheckStatus = "failed"
	CheckStatusSkipped CheckStatus = "skipped"
)

// ValidationCheck represents a single validation check result.
type ValidationCheck struct {
	// ID is a unique identifier for this check type.
	ID string `json:"id"`

	// Name is a human-readable name for the check.
	Name string `json:"name"`

	// Status is the check result.
	Status CheckStatus `json:"status"`

	// Severity indicates how serious a failure would be.
	Severity Severity `json:"severity"`

	// Evidence contains data supporting the check result.
	Evidence map[string]interface{} `json:"evidence,omitempty"`

	// Remediation contains steps to fix a failed check.
	Remediation string `json:"remediation,omitempty"`

	// Err is the failure cause. It is not serialized.
	Err error `json:"-"`

	// Duration is how long the check took to run.
	Duration time.Duration `json:"duration"`
}

// ValidationSummary aggregates check results.
type ValidationSummary struct {
	TotalChecks   int  `json:"total_checks"`
	PassedChecks  int  `json:"passed_checks"`
	FailedChecks  int  `json:"failed_checks"`
	SkippedChecks int  `json:"skipped_checks"`
	IsValid       bool `json:"is_valid"`
}

// ValidationReport contains the results of a connection test.
type ValidationReport struct {
	Connector   string            `json:"connector"`
	Checks      []ValidationCheck `json:"checks"`
	Summary     ValidationSummary `json:"summary"`
	ValidatedAt time.Time         `json:"validated_at"`
}

// IsValid returns false if any check of error severity or above failed.
func (r *ValidationReport) IsValid() bool {
	for _, check := range r.Checks {
		if check.Status == CheckStatusFailed && check.Severity.rank() >= SeverityError.rank() {
			return false
		}
	}
	return true
}

// FailedChecks returns the failed checks in run order.
func (r *ValidationReport) FailedChecks() []ValidationCheck {
	var failed []ValidationCheck
	for _, check := range r.Checks {
		if check.Status == CheckStatusFailed {
			failed = append(failed, check)
		}
	}
	return failed
}

// Err returns a connectivity error for the first blocking failure, or nil.
func (r *ValidationReport) Err() error {
	for _, check := range r.Checks {
		if check.Status != CheckStatusFailed || check.Severity.rank() < SeverityError.rank() {
			continue
		}
		err := ErrConnectivity(check.Name + " failed").
			WithConnector(r.Connector).
			WithOperation(string(CommandTestConnection)).
			WithCause(check.Err)
		if check.Remediation != "" {
			err.WithDetail("remediation", check.Remediation)
		}
		return err
	}
	return nil
}

// Validator performs one connection check.
type Validator interface {
	// ID returns the unique identifier for this validator.
	ID() string

	// Name returns a human-readable name.
	Name() string

	// Validate performs the validation check.
	Validate(ctx context.Context) ValidationCheck
}

// CheckFunc is a Validator backed by a function. The function returns
// evidence and an error; a nil error marks the check passed.
type CheckFunc struct {
	CheckID     string
	CheckName   string
	Severity    Severity
	Remediation string
	Fn          func(ctx context.Context) (map[string]interface{}, error)
}

// ID implements Validator.
func (c CheckFunc) ID() string { return c.CheckID }

// Name implements Validator.
func (c CheckFunc) Name() string { return c.CheckName }

// Validate implements Validator.
func (c CheckFunc) Validate(ctx context.Context) ValidationCheck {
	start := time.Now()
	check := ValidationCheck{
		ID:       c.CheckID,
		Name:     c.CheckName,
		Severity: c.Severity,
		Evidence: make(map[string]interface{}),
	}
	if check.Severity == "" {
		check.Severity = SeverityError
	}

	evidence, err := c.Fn(ctx)
	for k, v := range evidence {
		check.Evidence[k] = v
	}
	if err != nil {
		check.Status = CheckStatusFailed
		check.Err = err
		check.Evidence["error"] = err.Error()
		check.Remediation = c.Remediation
	} else {
		check.Status = CheckStatusPassed
	}
	check.Duration = time.Since(start)
	return check
}

// RunValidation executes validators in order and returns a report. A failed
// check of error severity or above stops the run; later checks are skipped.
func RunValidation(ctx context.Context, connectorName string, validators []Validator) *ValidationReport {
	report := &ValidationReport{
		Connector:   connectorName,
		Checks:      make([]ValidationCheck, 0, len(validators)),
		ValidatedAt: time.Now(),
	}

	blocked := false
	for _, v := range validators {
		var check ValidationCheck
		if blocked {
			check = ValidationCheck{ID: v.ID(), Name: v.Name(), Status: CheckStatusSkipped, Severity: SeverityInfo}
		} else {
			check = v.Validate(ctx)
		}
		report.Checks = append(report.Checks, check)

		switch check.Status {
		case CheckStatusPassed:
			report.Summary.PassedChecks++
		case CheckStatusFailed:
			report.Summary.FailedChecks++
			if check.Severity.rank() >= SeverityError.rank() {
				blocked = true
			}
		case CheckStatusSkipped:
			report.Summary.SkippedChecks++
		}
		report.Summary.TotalChecks++
	}

	report.Summary.IsValid = report.IsValid()
	return report
}
