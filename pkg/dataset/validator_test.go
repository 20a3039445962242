package dataset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func checkField(t *testing.T, props FieldProps, value any) []*ValidationResult {
	t.Helper()
	name, _ := props["name"].(string)
	require.NotEmpty(t, name)
	ds := New(Props{Name: "items", Fields: []FieldProps{props}, Data: []map[string]any{{}}}, nil)
	r := ds.Get(0)
	r.Set(name, value)
	_, err := r.GetField(name).CheckValidity(context.Background())
	require.NoError(t, err)
	return r.GetField(name).ValidationResults()
}

func TestValidatorRules(t *testing.T) {
	tests := []struct {
		name     string
		props    FieldProps
		value    any
		wantRule string
	}{
		{
			name:     "required empty",
			props:    FieldProps{"name": "code", "required": true, "label": "Code"},
			value:    nil,
			wantRule: RuleValueMissing,
		},
		{
			name:     "required empty without label",
			props:    FieldProps{"name": "code", "required": true},
			value:    nil,
			wantRule: RuleValueMissingNoLabel,
		},
		{
			name:  "required satisfied",
			props: FieldProps{"name": "code", "required": true},
			value: "A",
		},
		{
			name:     "bad input for number",
			props:    FieldProps{"name": "quantity", "type": FieldNumber},
			value:    "twelve",
			wantRule: RuleBadInput,
		},
		{
			name:     "pattern mismatch",
			props:    FieldProps{"name": "code", "pattern": "^[A-Z]+$"},
			value:    "abc",
			wantRule: RulePatternMismatch,
		},
		{
			name:  "pattern match",
			props: FieldProps{"name": "code", "pattern": "^[A-Z]+$"},
			value: "ABC",
		},
		{
			name:     "range overflow",
			props:    FieldProps{"name": "quantity", "type": FieldNumber, "max": 10},
			value:    11,
			wantRule: RuleRangeOverflow,
		},
		{
			name:     "range underflow",
			props:    FieldProps{"name": "quantity", "type": FieldNumber, "min": 2},
			value:    1,
			wantRule: RuleRangeUnderflow,
		},
		{
			name:     "step mismatch",
			props:    FieldProps{"name": "quantity", "type": FieldNumber, "step": 5},
			value:    7,
			wantRule: RuleStepMismatch,
		},
		{
			name:  "step aligned",
			props: FieldProps{"name": "quantity", "type": FieldNumber, "step": 5},
			value: 15,
		},
		{
			name:     "too long",
			props:    FieldProps{"name": "code", "maxLength": 3},
			value:    "ABCD",
			wantRule: RuleTooLong,
		},
		{
			name:     "too short",
			props:    FieldProps{"name": "code", "minLength": 3},
			value:    "AB",
			wantRule: RuleTooShort,
		},
		{
			name:     "email mismatch",
			props:    FieldProps{"name": "mail", "type": FieldEmail},
			value:    "not-a-mail",
			wantRule: RuleTypeMismatch,
		},
		{
			name:  "email match",
			props: FieldProps{"name": "mail", "type": FieldEmail},
			value: "dev@example.com",
		},
		{
			name:     "url mismatch",
			props:    FieldProps{"name": "home", "type": FieldURL},
			value:    "example dot com",
			wantRule: RuleTypeMismatch,
		},
		{
			name:  "empty optional value passes every rule",
			props: FieldProps{"name": "quantity", "type": FieldNumber, "min": 2, "maxLength": 1},
			value: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := checkField(t, tt.props, tt.value)

			if tt.wantRule == "" {
				assert.Empty(t, results)
				return
			}
			require.Len(t, results, 1, "exactly one failure expected")
			assert.Equal(t, tt.wantRule, results[0].RuleName)
			assert.NotEmpty(t, results[0].Message)
		})
	}
}

func TestValidatorCustomRule(t *testing.T) {
	var custom CustomValidator = func(ctx context.Context, value any, name string, record *Record) (bool, string, error) {
		if value == "forbidden" {
			return false, "value is forbidden", nil
		}
		return true, "", nil
	}

	results := checkField(t, FieldProps{"name": "code", "validator": custom}, "forbidden")
	require.Len(t, results, 1)
	assert.Equal(t, RuleCustomError, results[0].RuleName)
	assert.Equal(t, "value is forbidden", results[0].Message)

	assert.Empty(t, checkField(t, FieldProps{"name": "code", "validator": custom}, "allowed"))
}

func TestValidatorMessageOverride(t *testing.T) {
	results := checkField(t, FieldProps{
		"name":     "code",
		"required": true,
		"label":    "Code",
		"defaultValidationMessages": map[string]string{
			RuleValueMissing: "Give {label} a value.",
		},
	}, nil)

	require.Len(t, results, 1)
	assert.Equal(t, "Give Code a value.", results[0].Message)
}

func TestValidatorMultipleChecksPerItem(t *testing.T) {
	ds := New(Props{
		Name: "items",
		Fields: []FieldProps{
			{"name": "quantities", "type": FieldNumber, "multiple": true, "max": 10},
		},
		Data: []map[string]any{{}},
	}, nil)
	r := ds.Get(0)
	r.Set("quantities", []any{5, 11, "x"})

	ok, err := r.GetField("quantities").CheckValidity(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	results := r.GetField("quantities").ValidationResults()
	require.Len(t, results, 2, "each failing item reports once, passing items stay silent")
	assert.Equal(t, RuleBadInput, results[0].RuleName)
	assert.Equal(t, RuleRangeOverflow, results[1].RuleName)
}

func TestValidatorUniqueLocal(t *testing.T) {
	ds := New(Props{
		Name:   "items",
		Fields: []FieldProps{{"name": "code", "unique": true}},
		Data:   []map[string]any{{"code": "A"}, {"code": "B"}},
	}, nil)
	second := ds.Get(1)
	second.Set("code", "A")

	ok, err := second.GetField("code").CheckValidity(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	results := second.GetField("code").ValidationResults()
	require.Len(t, results, 1)
	assert.Equal(t, RuleUniqueError, results[0].RuleName)
}

func TestValidatorUniqueCleanFieldSkipsCheck(t *testing.T) {
	ds := New(Props{
		Name:   "items",
		Fields: []FieldProps{{"name": "code", "unique": true}},
		Data:   []map[string]any{{"code": "A"}, {"code": "A"}},
	}, nil)

	ok, err := ds.Get(1).GetField("code").CheckValidity(context.Background())

	require.NoError(t, err)
	assert.True(t, ok, "loaded duplicates are the server's business until the field changes")
}

func TestValidatorUniqueCompositeGroup(t *testing.T) {
	ds := New(Props{
		Name: "items",
		Fields: []FieldProps{
			{"name": "region", "unique": "regionCode"},
			{"name": "code", "unique": "regionCode"},
		},
		Data: []map[string]any{
			{"region": "eu", "code": "A"},
			{"region": "eu", "code": "B"},
		},
	}, nil)
	second := ds.Get(1)
	second.Set("code", "A")

	ok, err := second.GetField("code").CheckValidity(context.Background())
	require.NoError(t, err)
	assert.False(t, ok, "same region and code pair already exists")

	regionResults := second.GetField("region").ValidationResults()
	require.Len(t, regionResults, 1, "the whole group surfaces the conflict")
	assert.Equal(t, RuleUniqueError, regionResults[0].RuleName)
}

func TestValidatorResetClearsResults(t *testing.T) {
	ds := New(Props{
		Name:   "items",
		Fields: []FieldProps{{"name": "code", "required": true}},
		Data:   []map[string]any{{}},
	}, nil)
	f := ds.Get(0).GetField("code")

	ok, err := f.CheckValidity(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, f.Valid())

	f.Validator().Reset()
	assert.True(t, f.Valid())
	assert.Empty(t, f.ValidationResults())
}
