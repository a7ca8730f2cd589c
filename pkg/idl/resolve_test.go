package idl

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const genericTypes = `{
	"types": [
		{
			"name": "Node",
			"type": {"kind": "struct", "fields": [
				{"name": "value", "type": "u8"},
				{"name": "next", "type": {"option": {"defined": {"name": "Node"}}}}
			]}
		},
		{
			"name": "Pair",
			"generics": [{"kind": "type", "name": "T"}, {"kind": "const", "name": "N", "type": "usize"}],
			"type": {"kind": "struct", "fields": [
				{"name": "items", "type": {"array": [{"generic": "T"}, {"generic": "N"}]}}
			]}
		},
		{
			"name": "Grow",
			"generics": [{"kind": "type", "name": "T"}],
			"type": {"kind": "struct", "fields": [
				{"name": "next", "type": {"option": {"defined": {"name": "Grow", "generics": [{"kind": "type", "type": {"vec": {"generic": "T"}}}]}}}}
			]}
		}
	]
}`

func TestResolve_MemoizedIdentity(t *testing.T) {
	p, err := ParseProgramJSON([]byte(genericTypes))
	require.NoError(t, err)

	first, err := p.ResolveTypedef("Node")
	require.NoError(t, err)
	second, err := p.Resolve(FlatDefined{Name: "Node"}, nil)
	require.NoError(t, err)
	assert.Same(t, first, second)

	node := first.(*FullTypedef)
	content := node.Content.(FullStruct)
	next := content.Fields.Fields[1].Type.(FullOption)
	assert.Same(t, node, next.Content)
}

func TestResolve_Generics(t *testing.T) {
	p, err := ParseProgramJSON([]byte(genericTypes))
	require.NoError(t, err)

	full, err := p.ResolveTypedef("Pair", FlatPrimitive{Primitive: PrimitiveU16}, FlatConst{Literal: 2})
	require.NoError(t, err)

	node := full.(*FullTypedef)
	assert.Equal(t, []string{"u16", "2"}, node.Generics)
	assert.Equal(t, FullStruct{Fields: FullFields{
		Named:  true,
		Fields: []FullField{{Name: "items", Type: FullArray{Items: FullPrimitive{Primitive: PrimitiveU16}, Length: 2}}},
	}}, node.Content)

	again, err := p.ResolveTypedef("Pair", FlatPrimitive{Primitive: PrimitiveU16}, FlatConst{Literal: 2})
	require.NoError(t, err)
	assert.Same(t, full, again)

	other, err := p.ResolveTypedef("Pair", FlatPrimitive{Primitive: PrimitiveU8}, FlatConst{Literal: 2})
	require.NoError(t, err)
	assert.NotSame(t, full, other)

	encoded, err := Encode(full, map[string]interface{}{"items": []interface{}{1, 2}})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 0, 2, 0}, encoded)
}

func TestResolve_Errors(t *testing.T) {
	p, err := ParseProgramJSON([]byte(genericTypes))
	require.NoError(t, err)

	for _, tc := range []struct {
		name     string
		flat     FlatType
		typedef  string
		contains string
	}{
		{"unknown", FlatDefined{Name: "Missing"}, "Missing", "unknown typedef"},
		{"arity", FlatDefined{Name: "Pair", Generics: []FlatType{FlatPrimitive{Primitive: PrimitiveU8}}}, "Pair", "expected 2 generic arguments"},
		{"const for type", FlatDefined{Name: "Pair", Generics: []FlatType{FlatConst{Literal: 1}, FlatConst{Literal: 2}}}, "Pair", "expects a type argument"},
		{"type for const", FlatDefined{Name: "Pair", Generics: []FlatType{FlatPrimitive{Primitive: PrimitiveU8}, FlatPrimitive{Primitive: PrimitiveU8}}}, "Pair", "expects a const argument"},
		{"unbound generic", FlatGeneric{Symbol: "T"}, "<anonymous>", "unbound generic"},
		{"unbounded recursion", FlatDefined{Name: "Grow", Generics: []FlatType{FlatPrimitive{Primitive: PrimitiveU8}}}, "Grow", "too deep"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Resolve(tc.flat, nil)

			var resolution *TypeResolutionError
			require.True(t, errors.As(err, &resolution), "unexpected error %v", err)
			assert.Equal(t, tc.typedef, resolution.Typedef)
			assert.Contains(t, resolution.Message, tc.contains)
		})
	}

	// failed resolutions leave no partial nodes behind
	for key := range p.memo {
		assert.NotContains(t, key, "Grow")
		assert.NotContains(t, key, "Pair")
	}
}
