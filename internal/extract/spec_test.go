package extract

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_Rejects(t *testing.T) {
	tests := []struct {
		name string
		defs []Definition
		want string
	}{
		{"no columns", nil, "no columns"},
		{"empty name", []Definition{{Name: " ", Path: "a"}}, "column name is empty"},
		{"empty path", []Definition{{Name: "a", Path: ""}}, "path is empty"},
		{"double wildcard", []Definition{{Name: "a", Path: "a[*][*].b"}}, "adjacent wildcards"},
		{"unmatched bracket", []Definition{{Name: "a", Path: "a[*.b"}}, "'['"},
		{"duplicate", []Definition{{Name: "a", Path: "x"}, {Name: "a", Path: "y"}}, "duplicate column name"},
		{"bad default", []Definition{{Name: "a", Path: "x", Type: TypeNumber, Default: "N/A"}}, "default does not fit"},
		{"bad type", []Definition{{Name: "a", Path: "x", Type: "decimal"}}, "unknown column type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec, err := Compile(tt.defs...)
			assert.Nil(t, spec)
			var specErr *SpecError
			require.ErrorAs(t, err, &specErr)
			assert.Contains(t, specErr.Error(), tt.want)
		})
	}
}

func TestCompile_ColumnInError(t *testing.T) {
	_, err := Compile(Definition{Name: "Value", Path: "a[*][*].b"})
	var specErr *SpecError
	require.ErrorAs(t, err, &specErr)
	assert.Equal(t, "Value", specErr.Column)
	assert.Equal(t, "a[*][*].b", specErr.Path)
}

func TestCompile_NormalizesDefaults(t *testing.T) {
	spec := MustCompile(
		Definition{Name: "n", Path: "n", Type: TypeNumber, Default: 0},
		Definition{Name: "i", Path: "i", Type: "int", Default: "7"},
		Definition{Name: "s", Path: "s", Type: TypeString, Default: 3},
		Definition{Name: "b", Path: "b", Type: TypeBool, Default: "false"},
	)

	cols := spec.Definitions()
	assert.Equal(t, 0.0, cols[0].Default)
	assert.Equal(t, int64(7), cols[1].Default)
	assert.Equal(t, TypeInteger, cols[1].Type)
	assert.Equal(t, "3", cols[2].Default)
	assert.Equal(t, false, cols[3].Default)
}

func TestMustCompile_Panics(t *testing.T) {
	assert.Panics(t, func() { MustCompile(Definition{Name: "a", Path: "a[*][*]"}) })
}

func TestSpec_Scopes(t *testing.T) {
	spec := MustCompile(
		Definition{Name: "Study", Path: "id"},
		Definition{Name: "Measure", Path: "measures[*].title"},
		Definition{Name: "Value", Path: "measures[*].classes[*].value"},
		Definition{Name: "Spread", Path: "measures[*].classes[*].spread"},
		Definition{Name: "Group", Path: "groups[*].id"},
	)

	assert.Equal(t, []ScopeInfo{
		{Path: "", Depth: 0, Columns: []string{"Study"}},
		{Path: "measures[*]", Depth: 1, Columns: []string{"Measure"}},
		{Path: "measures[*].classes[*]", Depth: 2, Columns: []string{"Value", "Spread"}},
		{Path: "groups[*]", Depth: 1, Columns: []string{"Group"}},
	}, spec.Scopes())
	assert.True(t, spec.Cartesian())
	assert.Equal(t, []string{"Study", "Measure", "Value", "Spread", "Group"}, spec.Columns())
}

func TestDefinition_UnmarshalJSON(t *testing.T) {
	var defs []Definition
	require.NoError(t, json.Unmarshal([]byte(`[
		{"name":"Value","path":"m[*].value","type":"float","default":0},
		{"name":"Group","path":"m[*].groupId"}
	]`), &defs))

	spec, err := Compile(defs...)
	require.NoError(t, err)
	cols := spec.Definitions()
	assert.Equal(t, TypeNumber, cols[0].Type)
	assert.Equal(t, TypeAny, cols[1].Type)

	err = json.Unmarshal([]byte(`[{"name":"x","path":"x","type":"matrix"}]`), &defs)
	assert.Error(t, err)
}

func TestNewSpec_CopiesPath(t *testing.T) {
	path := FieldPath{Key("a"), Wildcard(), Key("b")}
	spec, err := NewSpec(Column{Name: "b", Path: path})
	require.NoError(t, err)

	path[2] = Key("changed")
	assert.Equal(t, "a[*].b", spec.Definitions()[0].Path.String())
}

func TestNewSpec_DottedKeyIsItsOwnScope(t *testing.T) {
	spec, err := NewSpec(
		Column{Name: "v", Path: FieldPath{Key("a.b"), Wildcard(), Key("v")}},
		Column{Name: "w", Path: MustParsePath("a.b[*].w")},
	)
	require.NoError(t, err)

	scopes := spec.Scopes()
	require.Len(t, scopes, 3)
	assert.Equal(t, []string{"v"}, scopes[1].Columns)
	assert.Equal(t, []string{"w"}, scopes[2].Columns)
	assert.True(t, spec.Cartesian())

	doc := mustDoc(t, `{"a.b":[{"v":1}],"a":{"b":[{"w":2},{"w":3}]}}`)
	assert.Equal(t, []map[string]any{
		{"v": 1.0, "w": 2.0},
		{"v": 1.0, "w": 3.0},
	}, rows(Assemble(doc, spec)))
}

func TestFieldPath_Equal(t *testing.T) {
	dotted := FieldPath{Key("a.b"), Wildcard()}
	nested := MustParsePath("a.b[*]")

	assert.Equal(t, dotted.String(), nested.String())
	assert.False(t, dotted.Equal(nested))
	assert.True(t, nested.Equal(MustParsePath("a.b[*]")))
	assert.False(t, MustParsePath("a[0]").Equal(MustParsePath("a[1]")))
}
