package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const addDoc = `
name: add
structs:
  - name: pair
    fields:
      - {name: lo, type: int}
      - {name: hi, type: long}
functions:
  - name: helper
    ret: float
    params:
      - {name: v, type: float}
  - name: add
    ret: void
    params:
      - name: X
        type: float*
        attrs: [{kind: multiple_of, value: 8}]
      - {name: n, type: int}
    body:
      - decl:
          name: off
          type: tile<int, 16>
          init: {binary: "...", lhs: {int: 0}, rhs: {int: 16}}
      - decl: {name: s, type: struct pair}
      - expr: {binary: "=", lhs: {binary: ".", lhs: {ident: s}, rhs: {ident: lo}}, rhs: {ident: n}}
      - for:
          init: {decl: {name: i, type: int, init: {int: 0}}}
          cond: {binary: "<", lhs: {ident: i}, rhs: {ident: n}}
          step: {unary: "x++", x: {ident: i}}
          body:
            - if:
                cond: {binary: "==", lhs: {ident: i}, rhs: {int: 3}}
                then: [{continue: true}]
      - expr:
          binary: "="
          lhs: {unary: "*", x: {binary: "+", lhs: {ident: X}, rhs: {ident: off}}}
          rhs: {call: helper, args: [{float: 1.5}]}
      - expr: {temp: t0, init: {call: get_program_id, args: [{int: 0}]}}
      - expr: {temp: t0}
      - return: {}
`

func TestDecode(t *testing.T) {
	tu, err := DecodeBytes("fallback", []byte(addDoc))
	require.NoError(t, err)
	assert.Equal(t, "add", tu.Name)
	require.Len(t, tu.Funcs, 2)
	assert.Nil(t, tu.Funcs[0].Body)

	fd, ok := tu.Lookup("add")
	require.True(t, ok)
	assert.Equal(t, "void (float*, int)", fd.Typ.String())
	assert.Equal(t, []Attr{{Kind: MultipleOf, Value: 8}}, fd.Params[0].Attrs)

	stmts := fd.Body.Stmts
	require.Len(t, stmts, 8)
	objs := fd.Body.Objects()
	require.Len(t, objs, 2)
	assert.Equal(t, "tile<int, 16>", objs[0].Typ.String())

	member := stmts[2].(*BinaryOp).LHS.(*BinaryOp)
	assert.Equal(t, Member, member.Op)
	assert.Equal(t, "int", member.Typ.String())

	loop := stmts[3].(*ForStmt)
	assert.IsType(t, &Declaration{}, loop.Init)
	assert.Equal(t, PostInc, loop.Step.(*UnaryOp).Op)

	store := stmts[4].(*BinaryOp)
	assert.Equal(t, "tile<float, 16>", store.Typ.String())
	assert.Equal(t, "float", store.RHS.Type().String())

	assert.Same(t, stmts[5], stmts[6])
	_, ok = stmts[7].(*ReturnStmt)
	assert.True(t, ok)
}

func TestDecodeErrors(t *testing.T) {
	docs := map[string]string{
		"unknown field": "name: x\nfunctions: []\nbogus: 1\n",
		"unknown ident": "functions: [{name: f, ret: void, body: [{expr: {ident: y}}]}]\n",
		"unknown call":  "functions: [{name: f, ret: void, body: [{expr: {call: g}}]}]\n",
		"bad type":      "functions: [{name: f, ret: vec4}]\n",
		"bad attr":      "functions: [{name: f, ret: void, params: [{name: p, type: int, attrs: [{kind: fast}]}]}]\n",
		"empty stmt":    "functions: [{name: f, ret: void, body: [{}]}]\n",
		"conflict":      "functions: [{name: f, ret: void}, {name: f, ret: int}]\n",
		"bad operator":  "functions: [{name: f, ret: void, body: [{expr: {binary: \"<=>\", lhs: {int: 1}, rhs: {int: 2}}}]}]\n",
		"out of scope":  "functions: [{name: f, ret: void, body: [{block: [{decl: {name: a, type: int}}]}, {expr: {ident: a}}]}]\n",
	}
	for name, doc := range docs {
		_, err := DecodeBytes("doc", []byte(doc))
		assert.Error(t, err, name)
	}
}
