package dataset

import (
	"context"
	"math"
	"reflect"
)

// Field value types.
const (
	FieldAuto     = "auto"
	FieldString   = "string"
	FieldNumber   = "number"
	FieldBoolean  = "boolean"
	FieldDate     = "date"
	FieldDateTime = "dateTime"
	FieldTime     = "time"
	FieldObject   = "object"
	FieldIntl     = "intl"
	FieldEmail    = "email"
	FieldURL      = "url"
)

// Numeric bounds applied when a number field declares no explicit limits.
const (
	MaxSafeNumber = float64(1<<53 - 1)
	MinSafeNumber = -float64(1<<53 - 1)
)

// PropsContext is handed to computed and dynamic property functions.
type PropsContext struct {
	DataSet *DataSet
	Record  *Record
	Name    string
}

// PropFunc computes one property value from the field's context. Returning
// nil falls through to the next resolver in the chain.
type PropFunc func(ctx PropsContext) any

// FieldProps is the open property bag for a field definition. Recognized
// keys include: name, type, label, required, readOnly, disabled, pattern,
// min, max, step, minLength, maxLength, multiple, range, unique, bind,
// defaultValue, ignore, trim, textField, valueField, lookupCode, lookupUrl,
// lovCode, lovPara, options, order, validator, computedProps, dynamicProps,
// defaultValidationMessages, transformRequest, transformResponse.
type FieldProps map[string]any

// fieldDefaults is the final fallback of the resolution chain.
var fieldDefaults = FieldProps{
	"type":       FieldAuto,
	"required":   false,
	"readOnly":   false,
	"disabled":   false,
	"textField":  "meaning",
	"valueField": "value",
	"trueValue":  true,
	"falseValue": false,
}

// Ignore policies for serialization.
const (
	IgnoreNever  = "never"
	IgnoreClean  = "clean"
	IgnoreAlways = "always"
)

// TransformRequest rewrites a field value on its way into a request body.
type TransformRequest func(value any, record *Record) any

// TransformResponse rewrites a raw response value before it is stored.
type TransformResponse func(value any, data map[string]any) any

// Field is a named, typed column descriptor attached to a Record or to a
// DataSet's field schema. Its effective configuration resolves through a
// layered chain: explicit props, computed props, dynamic props, the owning
// dataset's schema field, then global defaults.
type Field struct {
	name    string
	dataSet *DataSet
	record  *Record

	props      FieldProps
	dirtyProps FieldProps

	validator *Validator
	pending   *PromiseQueue

	computedCache map[string]any
	lastDynamic   map[string]any
	resolving     map[string]bool
	propagating   bool
}

// newField creates a field bound to a dataset schema (record nil) or to a
// record instance.
func newField(name string, props FieldProps, ds *DataSet, record *Record) *Field {
	f := &Field{
		name:          name,
		dataSet:       ds,
		record:        record,
		props:         FieldProps{},
		dirtyProps:    FieldProps{},
		pending:       NewPromiseQueue(),
		computedCache: map[string]any{},
		lastDynamic:   map[string]any{},
		resolving:     map[string]bool{},
	}
	for k, v := range props {
		f.props[k] = v
	}
	f.validator = NewValidator(f)
	return f
}

// Name returns the field name.
func (f *Field) Name() string { return f.name }

// Validator returns the field's validator.
func (f *Field) Validator() *Validator { return f.validator }

// Get resolves a property through the layered chain. Resolution order:
// computed props, dynamic props, explicit props, the dataset schema field's
// own chain, then specific fallbacks (global lookup URL, numeric bounds)
// and the package defaults.
func (f *Field) Get(propName string) any {
	if value := f.getProp(propName); value != nil {
		return value
	}
	return fieldDefaults[propName]
}

func (f *Field) getProp(propName string) any {
	if propName != "computedProps" && propName != "dynamicProps" {
		if value := f.getComputedProp(propName); value != nil {
			return value
		}
		if value := f.getDynamicProp(propName); value != nil {
			return value
		}
	}
	if value, ok := f.props[propName]; ok && value != nil {
		return value
	}
	if dsField := f.findDataSetField(); dsField != nil {
		if value := dsField.getProp(propName); value != nil {
			return value
		}
	}
	if propName == "lookupUrl" {
		if f.dataSet != nil {
			if code := f.GetString("lookupCode"); code != "" {
				return f.dataSet.config.LookupURL(code)
			}
		}
		return nil
	}
	if propName == "min" || propName == "max" {
		if f.GetString("type") == FieldNumber {
			if propName == "max" {
				return MaxSafeNumber
			}
			return MinSafeNumber
		}
	}
	return nil
}

// getComputedProp evaluates and memoizes a computed property. The cache is
// invalidated through checkDynamicProp when the computed value changes.
func (f *Field) getComputedProp(propName string) any {
	if cached, ok := f.computedCache[propName]; ok {
		return cached
	}
	computed, _ := f.rawProp("computedProps").(map[string]PropFunc)
	fn, ok := computed[propName]
	if !ok || fn == nil {
		return nil
	}
	value := f.executePropFunc(fn, propName)
	if value != nil {
		f.computedCache[propName] = value
		f.checkDynamicProp(propName, value)
	}
	return value
}

// getDynamicProp evaluates a dynamic property on every access with change
// detection.
func (f *Field) getDynamicProp(propName string) any {
	dynamic, _ := f.rawProp("dynamicProps").(map[string]PropFunc)
	fn, ok := dynamic[propName]
	if !ok || fn == nil {
		return nil
	}
	value := f.executePropFunc(fn, propName)
	f.checkDynamicProp(propName, value)
	return value
}

// rawProp reads a prop from the explicit bag or the schema field without
// triggering computed/dynamic evaluation.
func (f *Field) rawProp(propName string) any {
	if value, ok := f.props[propName]; ok && value != nil {
		return value
	}
	if dsField := f.findDataSetField(); dsField != nil {
		return dsField.rawProp(propName)
	}
	return nil
}

// executePropFunc runs a property function with cycle detection: a chain
// that re-enters itself resolves to nil rather than recursing.
func (f *Field) executePropFunc(fn PropFunc, propName string) any {
	if f.resolving[propName] {
		f.warn("cycle detected resolving dynamic prop %q of field %q", propName, f.name)
		return nil
	}
	f.resolving[propName] = true
	defer delete(f.resolving, propName)
	return fn(PropsContext{DataSet: f.dataSet, Record: f.record, Name: f.name})
}

// checkDynamicProp detects changes of computed/dynamic values between
// accesses. On change it resets the validator (for validation-relevant
// props) and runs the dependent-property side effects. Propagation is
// re-entrancy guarded instead of deferred to a later tick.
func (f *Field) checkDynamicProp(propName string, newValue any) {
	oldValue, seen := f.lastDynamic[propName]
	f.lastDynamic[propName] = newValue
	if !seen || isEqualProps(oldValue, newValue) {
		return
	}
	if f.propagating {
		return
	}
	f.propagating = true
	defer func() { f.propagating = false }()
	if isValidatorProp(propName) {
		f.validator.Reset()
	}
	delete(f.computedCache, propName)
	f.handlePropChange(propName, newValue, oldValue)
}

// validatorPropNames are the props whose change invalidates validation
// state.
var validatorPropNames = map[string]bool{
	"type": true, "required": true, "pattern": true, "min": true, "max": true,
	"step": true, "minLength": true, "maxLength": true, "unique": true,
	"multiple": true, "range": true, "validator": true, "format": true,
	"label": true, "defaultValidationMessages": true,
}

func isValidatorProp(propName string) bool {
	return validatorPropNames[propName]
}

// isEqualProps compares property values, treating functions with the same
// code pointer as equal so reconstructed closures do not force recomputes.
func isEqualProps(a, b any) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if av.Kind() == reflect.Func && bv.Kind() == reflect.Func {
		return av.Pointer() == bv.Pointer()
	}
	return reflect.DeepEqual(a, b)
}

// Set stores an explicit property value, remembering the previous value in
// dirtyProps so Reset can restore it. Dependent properties (type, lookup*,
// lov*, options) invalidate cached metadata and trigger a refetch.
func (f *Field) Set(propName string, value any) {
	oldValue := f.Get(propName)
	if isEqualProps(oldValue, value) {
		return
	}
	if previous, tracked := f.dirtyProps[propName]; !tracked {
		f.dirtyProps[propName] = oldValue
	} else if isSame(previous, value) {
		delete(f.dirtyProps, propName)
	}
	f.props[propName] = value
	delete(f.computedCache, propName)
	if f.record != nil && propName == "type" {
		f.record.Set(f.name, processValue(f.record.Get(f.name), f))
	}
	if f.dataSet != nil {
		f.dataSet.fire(&Event{
			Name:      EventFieldChange,
			DataSet:   f.dataSet,
			Record:    f.record,
			Field:     f,
			FieldName: f.name,
			PropName:  propName,
			Value:     value,
			OldValue:  oldValue,
		})
	}
	f.handlePropChange(propName, value, oldValue)
}

// lookupProps and lovProps are the dependent property sets whose change
// invalidates fetched metadata.
var lookupProps = map[string]bool{
	"type": true, "lookupUrl": true, "lookupCode": true, "lovCode": true,
	"lovPara": true, "cascadeMap": true, "optionsProps": true,
}

var lovProps = map[string]bool{
	"lovCode": true, "lovDefineUrl": true, "optionsProps": true,
}

func (f *Field) handlePropChange(propName string, newValue, oldValue any) {
	if propName == "bind" && f.GetString("type") != FieldIntl {
		if f.record != nil && !f.Dirty() {
			newBind, _ := newValue.(string)
			oldBind, _ := oldValue.(string)
			if newBind != "" && oldBind != "" {
				f.record.Init(newBind, f.record.Get(oldBind))
			}
			if oldBind != "" {
				f.record.Init(oldBind, nil)
			}
		}
		return
	}
	if lookupProps[propName] {
		delete(f.props, "lookupData")
		delete(f.props, "lookup")
		f.fetchLookup(context.Background())
	}
	if lovProps[propName] {
		f.fetchLovConfig(context.Background())
	}
}

// fetchLookup loads lookup rows through the configured provider, tracking
// the fetch on the field's pending queue so Ready can await it.
func (f *Field) fetchLookup(ctx context.Context) {
	if f.dataSet == nil || f.dataSet.config.Lookups == nil {
		return
	}
	code := f.GetString("lookupCode")
	if code == "" {
		return
	}
	provider := f.dataSet.config.Lookups
	_ = f.pending.Add(func() error {
		rows, err := provider.Lookup(ctx, code)
		if err != nil {
			f.warn("lookup fetch for code %q failed: %v", code, err)
			return err
		}
		f.props["lookup"] = rows
		return nil
	})
}

// fetchLovConfig loads LOV metadata for the field's lovCode, if any.
func (f *Field) fetchLovConfig(ctx context.Context) {
	if f.dataSet == nil || f.dataSet.config.Lookups == nil {
		return
	}
	code := f.GetString("lovCode")
	if code == "" {
		return
	}
	provider := f.dataSet.config.Lookups
	_ = f.pending.Add(func() error {
		cfg, err := provider.LovConfig(ctx, code)
		if err != nil {
			f.warn("lov config fetch for code %q failed: %v", code, err)
			return err
		}
		if cfg != nil {
			f.props["lovConfig"] = cfg
		}
		return nil
	})
}

// Ready waits for the field's pending metadata fetches.
func (f *Field) Ready(ctx context.Context) error {
	return f.pending.Ready(ctx)
}

// Reset restores properties mutated through Set to their original values.
func (f *Field) Reset() {
	for propName, oldValue := range f.dirtyProps {
		if oldValue == nil {
			delete(f.props, propName)
		} else {
			f.props[propName] = oldValue
		}
		delete(f.computedCache, propName)
	}
	f.dirtyProps = FieldProps{}
}

// Commit clears validation state after the owning record commits.
func (f *Field) Commit() {
	f.validator.Reset()
}

// Dirty reports whether the field's current value differs from pristine.
// Bound fields diff at the bound path, not the alias name.
func (f *Field) Dirty() bool {
	if f.record == nil {
		return false
	}
	path := f.valuePath()
	return !isSame(f.record.getByPath(path), f.record.getPristineByPath(path))
}

// valuePath returns the dot path the field reads and writes: the bind
// target when aliased, otherwise the field name.
func (f *Field) valuePath() string {
	if bind := f.GetString("bind"); bind != "" {
		return bind
	}
	return f.name
}

// GetValue reads the field's current value from its record, or from the
// owning dataset's current record for schema-level fields.
func (f *Field) GetValue() any {
	record := f.record
	if record == nil && f.dataSet != nil {
		record = f.dataSet.Current()
	}
	if record == nil {
		return nil
	}
	return record.Get(f.name)
}

// Typed accessors over the resolution chain.

// Type returns the declared field type.
func (f *Field) Type() string { return f.GetString("type") }

// Required reports the resolved required flag.
func (f *Field) Required() bool { return f.GetBool("required") }

// ReadOnly reports the resolved read-only flag.
func (f *Field) ReadOnly() bool { return f.GetBool("readOnly") }

// Multiple reports whether the field holds multiple values.
func (f *Field) Multiple() bool { return f.GetBool("multiple") }

// IsRange reports whether the field holds a [start, end] pair.
func (f *Field) IsRange() bool { return f.GetBool("range") }

// Label returns the display label.
func (f *Field) Label() string { return f.GetString("label") }

// Order returns the field's sort order, "" when unsorted.
func (f *Field) Order() string { return f.GetString("order") }

// SetOrder sets the field's sort order.
func (f *Field) SetOrder(order string) { f.Set("order", order) }

// GetString resolves a property and coerces it to string.
func (f *Field) GetString(propName string) string {
	s, _ := f.Get(propName).(string)
	return s
}

// GetBool resolves a property and coerces it to bool.
func (f *Field) GetBool(propName string) bool {
	b, _ := f.Get(propName).(bool)
	return b
}

// GetInt resolves a property and coerces it to int.
func (f *Field) GetInt(propName string) int {
	switch v := f.Get(propName).(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// SetLovPara sets one LOV query parameter, removing it when value is nil.
func (f *Field) SetLovPara(name string, value any) {
	para := map[string]any{}
	if existing, ok := f.Get("lovPara").(map[string]any); ok {
		for k, v := range existing {
			para[k] = v
		}
	}
	if value == nil {
		delete(para, name)
	} else {
		para[name] = value
	}
	f.Set("lovPara", para)
}

// GetLookupText resolves a value to its display text through the fetched
// lookup rows. Returns "" when not found unless showValueIfNotFound.
func (f *Field) GetLookupText(value any, showValueIfNotFound bool) string {
	textField := f.GetString("textField")
	valueField := f.GetString("valueField")
	rows, _ := f.Get("lookup").([]map[string]any)
	for _, row := range rows {
		if isSame(row[valueField], value) {
			if text, ok := row[textField].(string); ok {
				return text
			}
		}
	}
	if showValueIfNotFound && value != nil {
		if s, ok := value.(string); ok {
			return s
		}
	}
	return ""
}

// Valid reports the field's last validation outcome.
func (f *Field) Valid() bool { return f.validator.Valid() }

// ValidationMessage returns the first failure message, "" when valid.
func (f *Field) ValidationMessage() string { return f.validator.ValidationMessage() }

// ValidationResults returns all recorded failures.
func (f *Field) ValidationResults() []*ValidationResult { return f.validator.ValidationResults() }

// CheckValidity resets and re-runs the rule pipeline against the field's
// current value.
func (f *Field) CheckValidity(ctx context.Context) (bool, error) {
	if f.record == nil {
		return true, nil
	}
	f.validator.Reset()
	return f.validator.CheckValidity(ctx, f.record.Get(f.name))
}

// validatorProps resolves the rule configuration from the property chain.
func (f *Field) validatorProps() *validatorProps {
	p := &validatorProps{
		fieldType: f.Type(),
		required:  f.Required(),
		pattern:   f.GetString("pattern"),
		minLength: f.GetInt("minLength"),
		maxLength: f.GetInt("maxLength"),
		name:      f.name,
		label:     f.Label(),
		unique:    f.Get("unique"),
		multiple:  f.Multiple(),
		isRange:   f.IsRange(),
		dataSet:   f.dataSet,
		record:    f.record,
	}
	if custom, ok := f.Get("validator").(CustomValidator); ok {
		p.custom = custom
	}
	if messages, ok := f.Get("defaultValidationMessages").(map[string]string); ok {
		p.messages = messages
	}
	p.min = f.limit("min")
	p.max = f.limit("max")
	if step, ok := toFloat(f.Get("step")); ok && f.Get("step") != nil {
		p.step = &step
	}
	return p
}

// limit resolves a min/max bound. A string bound names another field on the
// same record whose value supplies the limit.
func (f *Field) limit(propName string) *float64 {
	raw := f.Get(propName)
	if raw == nil {
		return nil
	}
	if ref, ok := raw.(string); ok && f.record != nil {
		if _, numeric := toFloat(ref); !numeric {
			raw = f.record.Get(ref)
		}
	}
	if raw == nil {
		return nil
	}
	value, ok := toFloat(raw)
	if !ok {
		return nil
	}
	// The default safe-integer bounds mean "unbounded" for rule purposes.
	if value == MaxSafeNumber || value == MinSafeNumber {
		if math.Abs(value) == MaxSafeNumber {
			return nil
		}
	}
	return &value
}

// findDataSetField returns the schema field this record-level field
// inherits from, nil for schema-level fields.
func (f *Field) findDataSetField() *Field {
	if f.record == nil || f.dataSet == nil {
		return nil
	}
	return f.dataSet.GetField(f.name)
}

func (f *Field) warn(format string, args ...any) {
	if f.dataSet != nil {
		f.dataSet.config.Warn(format, args...)
		return
	}
	DefaultConfig().Warn(format, args...)
}

// processValue normalizes a raw value per the field's declared type: number
// coercion for numeric fields, string trimming per the trim policy, and
// true/false value mapping for booleans.
func processValue(value any, f *Field) any {
	if value == nil || f == nil {
		return value
	}
	switch f.GetString("type") {
	case FieldNumber:
		if n, ok := toFloat(value); ok {
			return n
		}
		return value
	case FieldBoolean:
		if b, ok := value.(bool); ok {
			if b {
				return f.Get("trueValue")
			}
			return f.Get("falseValue")
		}
		return value
	case FieldString, FieldIntl, FieldEmail, FieldURL:
		if s, ok := value.(string); ok {
			return trimValue(s, f.GetString("trim"))
		}
		return value
	default:
		return value
	}
}

func trimValue(s, policy string) string {
	switch policy {
	case "left":
		return trimLeftSpace(s)
	case "right":
		return trimRightSpace(s)
	case "none":
		return s
	default: // both
		return trimLeftSpace(trimRightSpace(s))
	}
}

func trimLeftSpace(s string) string {
	for len(s) > 0 && (s[0] == ' ' || s[0] == '\t') {
		s = s[1:]
	}
	return s
}

func trimRightSpace(s string) string {
	for len(s) > 0 && (s[len(s)-1] == ' ' || s[len(s)-1] == '\t') {
		s = s[:len(s)-1]
	}
	return s
}
