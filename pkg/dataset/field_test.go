package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldPropResolutionChain(t *testing.T) {
	ds := New(Props{
		Name: "items",
		Fields: []FieldProps{
			{"name": "code", "label": "Code", "required": true},
		},
		Data: []map[string]any{{"code": "A"}},
	}, nil)
	r := ds.Get(0)
	f := r.GetField("code")
	require.NotNil(t, f)

	t.Run("record field inherits from the dataset schema", func(t *testing.T) {
		assert.Equal(t, "Code", f.Label())
		assert.True(t, f.Required())
	})

	t.Run("record-level override wins over the schema", func(t *testing.T) {
		f.Set("required", false)
		assert.False(t, f.Required())
		assert.True(t, ds.GetField("code").Required(), "the schema field is untouched")
	})

	t.Run("defaults close the chain", func(t *testing.T) {
		assert.Equal(t, FieldAuto, f.Type())
		assert.Equal(t, "meaning", f.GetString("textField"))
		assert.Equal(t, "value", f.GetString("valueField"))
	})
}

func TestFieldDynamicProps(t *testing.T) {
	ds := New(Props{
		Name: "items",
		Fields: []FieldProps{
			{"name": "country"},
			{"name": "state", "dynamicProps": map[string]PropFunc{
				"required": func(ctx PropsContext) any {
					return ctx.Record.Get("country") == "US"
				},
			}},
		},
		Data: []map[string]any{{"country": "FR"}},
	}, nil)
	r := ds.Get(0)
	f := r.GetField("state")

	assert.False(t, f.Required())

	r.Set("country", "US")
	assert.True(t, f.Required(), "dynamic props re-evaluate against the record")
}

func TestFieldComputedPropsAreCached(t *testing.T) {
	calls := 0
	ds := New(Props{
		Name: "items",
		Fields: []FieldProps{
			{"name": "code", "computedProps": map[string]PropFunc{
				"label": func(ctx PropsContext) any {
					calls++
					return "Computed"
				},
			}},
		},
		Data: []map[string]any{{"code": "A"}},
	}, nil)
	f := ds.Get(0).GetField("code")

	assert.Equal(t, "Computed", f.Label())
	assert.Equal(t, "Computed", f.Label())
	assert.Equal(t, 1, calls)
}

func TestFieldSetTracksDirtyProps(t *testing.T) {
	ds := newTestDataSet([]map[string]any{{"code": "A"}})
	f := ds.Get(0).GetField("code")

	f.Set("label", "Override")
	assert.Equal(t, "Override", f.Label())

	f.Reset()
	assert.Equal(t, "", f.Label(), "reset drops set props with no original value")
}

func TestFieldNumberBounds(t *testing.T) {
	ds := New(Props{
		Name: "items",
		Fields: []FieldProps{
			{"name": "quantity", "type": FieldNumber, "max": 10},
			{"name": "free", "type": FieldNumber},
		},
		Data: []map[string]any{{}},
	}, nil)
	r := ds.Get(0)

	q := r.GetField("quantity").validatorProps()
	require.NotNil(t, q.max)
	assert.EqualValues(t, 10, *q.max)

	free := r.GetField("free").validatorProps()
	assert.Nil(t, free.max, "implicit safe-number bounds do not become rule limits")
	assert.Nil(t, free.min)
}

func TestFieldLimitFromSiblingField(t *testing.T) {
	ds := New(Props{
		Name: "items",
		Fields: []FieldProps{
			{"name": "floor", "type": FieldNumber},
			{"name": "value", "type": FieldNumber, "min": "floor"},
		},
		Data: []map[string]any{{"floor": 3}},
	}, nil)
	f := ds.Get(0).GetField("value")

	p := f.validatorProps()
	require.NotNil(t, p.min)
	assert.EqualValues(t, 3, *p.min)
}

func TestProcessValueByType(t *testing.T) {
	tests := []struct {
		name  string
		props FieldProps
		in    any
		want  any
	}{
		{
			name:  "number coerces numeric strings",
			props: FieldProps{"name": "f", "type": FieldNumber},
			in:    "12.5",
			want:  12.5,
		},
		{
			name:  "string trims both ends by default",
			props: FieldProps{"name": "f", "type": FieldString},
			in:    "  padded  ",
			want:  "padded",
		},
		{
			name:  "trim none keeps whitespace",
			props: FieldProps{"name": "f", "type": FieldString, "trim": "none"},
			in:    " raw ",
			want:  " raw ",
		},
		{
			name:  "boolean maps onto true value",
			props: FieldProps{"name": "f", "type": FieldBoolean, "trueValue": "Y", "falseValue": "N"},
			in:    true,
			want:  "Y",
		},
		{
			name:  "boolean maps onto false value",
			props: FieldProps{"name": "f", "type": FieldBoolean, "trueValue": "Y", "falseValue": "N"},
			in:    false,
			want:  "N",
		},
		{
			name:  "auto passes values through",
			props: FieldProps{"name": "f"},
			in:    "  keep  ",
			want:  "  keep  ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := New(Props{Name: "items", Fields: []FieldProps{tt.props}, Data: []map[string]any{{}}}, nil)
			r := ds.Get(0)

			r.Set("f", tt.in)

			assert.Equal(t, tt.want, r.Get("f"))
		})
	}
}
