package dataset

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Validation rule names, also used as keys into message overrides.
const (
	RuleValueMissing        = "valueMissing"
	RuleValueMissingNoLabel = "valueMissingNoLabel"
	RuleBadInput            = "badInput"
	RuleTypeMismatch        = "typeMismatch"
	RulePatternMismatch     = "patternMismatch"
	RuleRangeOverflow       = "rangeOverflow"
	RuleRangeUnderflow      = "rangeUnderflow"
	RuleStepMismatch        = "stepMismatch"
	RuleTooLong             = "tooLong"
	RuleTooShort            = "tooShort"
	RuleCustomError         = "customError"
	RuleUniqueError         = "uniqueError"
)

// defaultMessages are the built-in message templates. Placeholders of the
// form {name} are filled from the result's injection options.
var defaultMessages = map[string]string{
	RuleValueMissing:        "{label} is required.",
	RuleValueMissingNoLabel: "A value is required.",
	RuleBadInput:            "The value is not a number.",
	RuleTypeMismatch:        "The value does not match the {type} format.",
	RulePatternMismatch:     "The value does not match the required pattern.",
	RuleRangeOverflow:       "The value must be less than or equal to {max}.",
	RuleRangeUnderflow:      "The value must be greater than or equal to {min}.",
	RuleStepMismatch:        "The nearest valid values are {0} and {1}.",
	RuleTooLong:             "The value may be at most {maxLength} characters, but is {length}.",
	RuleTooShort:            "The value must be at least {minLength} characters, but is {length}.",
	RuleCustomError:         "{message}",
	RuleUniqueError:         "The value is already in use.",
}

// ValidationResult is one structured rule failure. It is a value, not an
// error: validation failures never propagate as exceptions.
type ValidationResult struct {
	RuleName         string
	Message          string
	InjectionOptions map[string]any
	Value            any
}

// RecordValidationErrors pairs a field with its rule failures.
type RecordValidationErrors struct {
	Field  *Field
	Errors []*ValidationResult
}

// ValidationErrors groups a record's field failures for reporting.
type ValidationErrors struct {
	Record *Record
	Errors []RecordValidationErrors
}

// CustomValidator is a user-supplied rule. It returns ok=false with an
// optional message to fail the value; err aborts validation entirely.
type CustomValidator func(ctx context.Context, value any, name string, record *Record) (ok bool, message string, err error)

// validatorProps is the resolved rule configuration for one check pass,
// gathered from the owning field's property chain.
type validatorProps struct {
	fieldType string
	required  bool
	pattern   string
	min       *float64
	max       *float64
	step      *float64
	minLength int
	maxLength int
	name      string
	label     string
	unique    any // bool or composite group name
	multiple  bool
	isRange   bool
	custom    CustomValidator
	messages  map[string]string
	dataSet   *DataSet
	record    *Record
}

// message renders the template for ruleName with the injection options
// applied, honoring field-level overrides.
func (p *validatorProps) message(ruleName string, options map[string]any) string {
	tpl, ok := p.messages[ruleName]
	if !ok {
		tpl = defaultMessages[ruleName]
	}
	for key, value := range options {
		tpl = strings.ReplaceAll(tpl, "{"+key+"}", fmt.Sprint(value))
	}
	return tpl
}

// ruleFunc evaluates one value against one rule. A nil result means pass.
type ruleFunc func(ctx context.Context, value any, p *validatorProps) (*ValidationResult, error)

// validationRules is the fixed pipeline order, applied after the
// required-ness gate.
func validationRules() []ruleFunc {
	return []ruleFunc{
		ruleBadInput,
		rulePatternMismatch,
		ruleRangeOverflow,
		ruleRangeUnderflow,
		ruleStepMismatch,
		ruleTooLong,
		ruleTooShort,
		ruleTypeMismatch,
		ruleCustomError,
		ruleUniqueError,
	}
}

// Validator runs the rule pipeline for one field and owns its results.
type Validator struct {
	field   *Field
	results []*ValidationResult
}

// NewValidator creates a validator bound to field.
func NewValidator(field *Field) *Validator {
	return &Validator{field: field}
}

// Reset clears recorded failures, including uniqueError results on sibling
// fields of the same composite unique group.
func (v *Validator) Reset() {
	v.clearErrors()
	for _, sibling := range v.uniqueRefFields() {
		sibling.validator.clearErrors()
	}
}

func (v *Validator) clearErrors() {
	v.results = nil
}

func (v *Validator) addError(result *ValidationResult) {
	v.results = append(v.results, result)
}

// uniqueRefFields returns sibling fields sharing this field's composite
// unique group name.
func (v *Validator) uniqueRefFields() []*Field {
	field := v.field
	if field == nil || field.record == nil {
		return nil
	}
	group, ok := field.Get("unique").(string)
	if !ok || group == "" {
		return nil
	}
	var refs []*Field
	for name, sibling := range field.record.fields {
		if name == field.name {
			continue
		}
		if sg, ok := sibling.Get("unique").(string); ok && sg == group &&
			!sibling.Multiple() && !sibling.IsRange() {
			refs = append(refs, sibling)
		}
	}
	return refs
}

// ValidationResults returns the recorded failures. When this field is clean
// but a composite-unique sibling holds a uniqueError, that error is
// surfaced here as well so every member of the group reports it.
func (v *Validator) ValidationResults() []*ValidationResult {
	if len(v.results) == 0 {
		for _, sibling := range v.uniqueRefFields() {
			for _, result := range sibling.validator.results {
				if result.RuleName == RuleUniqueError {
					return []*ValidationResult{result}
				}
			}
		}
	}
	return v.results
}

// CurrentValidationResult returns the first failure, or nil when valid.
func (v *Validator) CurrentValidationResult() *ValidationResult {
	results := v.ValidationResults()
	if len(results) == 0 {
		return nil
	}
	return results[0]
}

// Valid reports whether the last check recorded no failures.
func (v *Validator) Valid() bool {
	return v.CurrentValidationResult() == nil
}

// ValidationMessage returns the first failure's rendered message.
func (v *Validator) ValidationMessage() string {
	if result := v.CurrentValidationResult(); result != nil {
		return result.Message
	}
	return ""
}

// CheckValidity runs the pipeline against value. Required-ness is checked
// against the whole value; the remaining rules run per item for
// multiple/range values, with failing items removed from the working set so
// one failure does not mask distinct failures of the other items.
func (v *Validator) CheckValidity(ctx context.Context, value any) (bool, error) {
	props := v.field.validatorProps()
	v.clearErrors()
	if result := ruleValueMissing(value, props); result != nil {
		v.addError(result)
		return false, nil
	}
	working := []any{value}
	if props.multiple {
		working = toSlice(value)
	}
	for _, rule := range validationRules() {
		if len(working) == 0 {
			break
		}
		kept := working[:0]
		for _, item := range working {
			result, err := rule(ctx, item, props)
			if err != nil {
				return false, err
			}
			if result != nil {
				v.addError(result)
				continue
			}
			kept = append(kept, item)
		}
		working = kept
	}
	return v.Valid(), nil
}

// ruleValueMissing is the required-ness gate, run before the pipeline.
func ruleValueMissing(value any, p *validatorProps) *ValidationResult {
	missing := isEmptyArray(value)
	if !missing && p.multiple && p.isRange {
		missing = true
		for _, item := range toSlice(value) {
			if !isEmptyArray(item) {
				missing = false
				break
			}
		}
	}
	if p.required && missing {
		ruleName := RuleValueMissing
		if p.label == "" {
			ruleName = RuleValueMissingNoLabel
		}
		options := map[string]any{"label": p.label}
		return &ValidationResult{
			RuleName:         ruleName,
			Message:          p.message(ruleName, options),
			InjectionOptions: options,
			Value:            value,
		}
	}
	return nil
}

// toFloat coerces numeric and numeric-string values.
func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// rangeItems expands a range value into its endpoints for bound checks.
func rangeItems(value any, isRange bool) []any {
	if isRange {
		return toSlice(value)
	}
	return []any{value}
}

func ruleBadInput(_ context.Context, value any, p *validatorProps) (*ValidationResult, error) {
	if p.fieldType != FieldNumber {
		return nil, nil
	}
	for _, item := range rangeItems(value, p.isRange) {
		if isEmpty(item) {
			continue
		}
		if _, ok := toFloat(item); !ok {
			return &ValidationResult{
				RuleName: RuleBadInput,
				Message:  p.message(RuleBadInput, nil),
				Value:    value,
			}, nil
		}
	}
	return nil, nil
}

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	urlPattern   = regexp.MustCompile(`^https?://\S+$`)
)

func ruleTypeMismatch(_ context.Context, value any, p *validatorProps) (*ValidationResult, error) {
	s, ok := value.(string)
	if !ok || s == "" {
		return nil, nil
	}
	var mismatch bool
	switch p.fieldType {
	case FieldEmail:
		mismatch = !emailPattern.MatchString(s)
	case FieldURL:
		mismatch = !urlPattern.MatchString(s)
	default:
		return nil, nil
	}
	if mismatch {
		options := map[string]any{"type": p.fieldType}
		return &ValidationResult{
			RuleName:         RuleTypeMismatch,
			Message:          p.message(RuleTypeMismatch, options),
			InjectionOptions: options,
			Value:            value,
		}, nil
	}
	return nil, nil
}

func rulePatternMismatch(_ context.Context, value any, p *validatorProps) (*ValidationResult, error) {
	if p.pattern == "" || isEmpty(value) {
		return nil, nil
	}
	re, err := regexp.Compile(p.pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", p.pattern, err)
	}
	if !re.MatchString(fmt.Sprint(value)) {
		options := map[string]any{"pattern": p.pattern}
		return &ValidationResult{
			RuleName:         RulePatternMismatch,
			Message:          p.message(RulePatternMismatch, options),
			InjectionOptions: options,
			Value:            value,
		}, nil
	}
	return nil, nil
}

func ruleRangeOverflow(_ context.Context, value any, p *validatorProps) (*ValidationResult, error) {
	if p.max == nil {
		return nil, nil
	}
	for _, item := range rangeItems(value, p.isRange) {
		if isEmpty(item) {
			continue
		}
		if f, ok := toFloat(item); ok && f > *p.max {
			options := map[string]any{"max": *p.max, "label": p.label}
			return &ValidationResult{
				RuleName:         RuleRangeOverflow,
				Message:          p.message(RuleRangeOverflow, options),
				InjectionOptions: options,
				Value:            value,
			}, nil
		}
	}
	return nil, nil
}

func ruleRangeUnderflow(_ context.Context, value any, p *validatorProps) (*ValidationResult, error) {
	if p.min == nil {
		return nil, nil
	}
	for _, item := range rangeItems(value, p.isRange) {
		if isEmpty(item) {
			continue
		}
		if f, ok := toFloat(item); ok && f < *p.min {
			options := map[string]any{"min": *p.min, "label": p.label}
			return &ValidationResult{
				RuleName:         RuleRangeUnderflow,
				Message:          p.message(RuleRangeUnderflow, options),
				InjectionOptions: options,
				Value:            value,
			}, nil
		}
	}
	return nil, nil
}

// nearStepValues returns the valid values surrounding a step-mismatching
// value, or nil when the value lies on a step.
func nearStepValues(value, step float64, min *float64) []float64 {
	base := 0.0
	if min != nil {
		base = *min
	}
	offset := math.Mod(value-base, step)
	if math.Abs(offset) < 1e-9 || math.Abs(math.Abs(offset)-step) < 1e-9 {
		return nil
	}
	before := value - offset
	return []float64{before, before + step}
}

func ruleStepMismatch(_ context.Context, value any, p *validatorProps) (*ValidationResult, error) {
	if p.step == nil {
		return nil, nil
	}
	for _, item := range rangeItems(value, p.isRange) {
		if isEmpty(item) {
			continue
		}
		f, ok := toFloat(item)
		if !ok {
			continue
		}
		if near := nearStepValues(f, *p.step, p.min); near != nil {
			options := map[string]any{"0": near[0], "1": near[1]}
			return &ValidationResult{
				RuleName:         RuleStepMismatch,
				Message:          p.message(RuleStepMismatch, options),
				InjectionOptions: options,
				Value:            value,
			}, nil
		}
	}
	return nil, nil
}

func ruleTooLong(_ context.Context, value any, p *validatorProps) (*ValidationResult, error) {
	if p.maxLength <= 0 || isEmpty(value) {
		return nil, nil
	}
	length := len([]rune(fmt.Sprint(value)))
	if length > p.maxLength {
		options := map[string]any{"maxLength": p.maxLength, "length": length}
		return &ValidationResult{
			RuleName:         RuleTooLong,
			Message:          p.message(RuleTooLong, options),
			InjectionOptions: options,
			Value:            value,
		}, nil
	}
	return nil, nil
}

func ruleTooShort(_ context.Context, value any, p *validatorProps) (*ValidationResult, error) {
	if p.minLength <= 0 || isEmpty(value) {
		return nil, nil
	}
	length := len([]rune(fmt.Sprint(value)))
	if length < p.minLength {
		options := map[string]any{"minLength": p.minLength, "length": length}
		return &ValidationResult{
			RuleName:         RuleTooShort,
			Message:          p.message(RuleTooShort, options),
			InjectionOptions: options,
			Value:            value,
		}, nil
	}
	return nil, nil
}

func ruleCustomError(ctx context.Context, value any, p *validatorProps) (*ValidationResult, error) {
	if p.custom == nil {
		return nil, nil
	}
	ok, message, err := p.custom(ctx, value, p.name, p.record)
	if err != nil {
		return nil, err
	}
	if ok {
		return nil, nil
	}
	options := map[string]any{"message": message}
	return &ValidationResult{
		RuleName:         RuleCustomError,
		Message:          p.message(RuleCustomError, options),
		InjectionOptions: options,
		Value:            value,
	}, nil
}

// ruleUniqueError checks uniqueness: first against in-memory sibling
// records, then against the remote validate endpoint only when no local
// conflict exists. The check runs only for dirty single-valued fields whose
// composite group (if any) is fully populated.
func ruleUniqueError(ctx context.Context, value any, p *validatorProps) (*ValidationResult, error) {
	if isEmpty(value) || p.dataSet == nil || p.record == nil || p.name == "" ||
		p.multiple || p.isRange || p.unique == nil {
		return nil, nil
	}
	group, isGroup := p.unique.(string)
	if !isGroup {
		if enabled, ok := p.unique.(bool); !ok || !enabled {
			return nil, nil
		}
	}
	field := p.record.GetField(p.name)
	if field == nil {
		return nil, nil
	}
	// New records always check; persisted ones only once the field changed.
	dirty := field.Dirty() || p.record.IsNew()
	keys := map[string]any{p.name: value}
	if isGroup && group != "" {
		for name, sibling := range p.record.fields {
			if name == p.name {
				continue
			}
			if sg, ok := sibling.Get("unique").(string); !ok || sg != group ||
				sibling.Multiple() || sibling.IsRange() {
				continue
			}
			other := p.record.Get(name)
			if isEmpty(other) {
				// Composite key incomplete: nothing to check yet.
				return nil, nil
			}
			if sibling.Dirty() {
				dirty = true
			}
			keys[name] = other
		}
	}
	if !dirty {
		return nil, nil
	}
	invalid := false
	for _, other := range p.dataSet.Data() {
		if other == p.record {
			continue
		}
		match := true
		for name, want := range keys {
			if !isSame(other.Get(name), want) {
				match = false
				break
			}
		}
		if match {
			invalid = true
			break
		}
	}
	if !invalid {
		remote, err := p.dataSet.checkUniqueRemote(ctx, keys)
		if err != nil {
			return nil, err
		}
		invalid = !remote
	}
	if invalid {
		return &ValidationResult{
			RuleName: RuleUniqueError,
			Message:  p.message(RuleUniqueError, nil),
			Value:    value,
		}, nil
	}
	return nil, nil
}
