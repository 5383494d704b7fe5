package jsonval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRejectsGarbage(t *testing.T) {
	_, err := Parse([]byte(`{"data": `))
	assert.Error(t, err)

	_, err = Parse([]byte(`for (;;);{"data":{}}`))
	assert.Error(t, err)
}

func TestKinds(t *testing.T) {
	doc := MustParse(`{"n":null,"b":true,"i":12,"s":"x","o":{},"a":[1]}`)

	tests := map[string]Kind{
		"n": Null, "b": Bool, "i": Number, "s": String, "o": Object, "a": Array,
	}
	for key, want := range tests {
		t.Run(key, func(t *testing.T) {
			v, ok := doc.Get(key)
			require.True(t, ok)
			assert.Equal(t, want, v.Kind())
		})
	}

	missing, ok := doc.Get("nope")
	assert.False(t, ok)
	assert.Equal(t, Invalid, missing.Kind())
}

func TestEntriesKeepDocumentOrder(t *testing.T) {
	doc := MustParse(`{"zeta":1,"alpha":2,"xdt_api__v1__x":3,"beta":4}`)
	assert.Equal(t, []string{"zeta", "alpha", "xdt_api__v1__x", "beta"}, doc.Keys())
	assert.Equal(t, 4, doc.Len())
}

func TestAccessors(t *testing.T) {
	doc := MustParse(`{"user":{"pk":17841400,"id":"17841400","username":"alice"},"items":[{"code":"A"},{"code":"B"}],"ok":false}`)

	name, ok := doc.Path("user", "username")
	require.True(t, ok)
	s, ok := name.Str()
	assert.True(t, ok)
	assert.Equal(t, "alice", s)

	pk, _ := doc.Path("user", "pk")
	text, ok := pk.Text()
	assert.True(t, ok)
	assert.Equal(t, "17841400", text)
	n, ok := pk.Int()
	assert.True(t, ok)
	assert.Equal(t, int64(17841400), n)

	_, ok = pk.Str()
	assert.False(t, ok, "numbers are not strings")

	items, _ := doc.Get("items")
	assert.Len(t, items.Items(), 2)
	second, _ := items.Items()[1].Get("code")
	code, _ := second.Str()
	assert.Equal(t, "B", code)

	flag, _ := doc.Get("ok")
	b, ok := flag.Bool()
	assert.True(t, ok)
	assert.False(t, b)

	_, ok = doc.Path("user", "missing", "deeper")
	assert.False(t, ok)
}

func TestEqual(t *testing.T) {
	a := MustParse(`{"x":[1,2,{"y":"z"}],"n":1.0}`)
	b := MustParse(`{ "n": 1, "x": [1, 2, {"y": "z"}] }`)
	c := MustParse(`{"x":[2,1,{"y":"z"}],"n":1}`)

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.False(t, Equal(a, MustParse(`{"x":[1,2,{"y":"z"}]}`)))
}

func TestPrettyRoundTrip(t *testing.T) {
	v := MustParse(`{"b":1,"a":{"c":[true,null,"s"]}}`)
	again, err := Parse(v.Pretty())
	require.NoError(t, err)
	assert.True(t, Equal(v, again))
	assert.Equal(t, []string{"b", "a"}, again.Keys())
}

func TestWrap(t *testing.T) {
	inner := MustParse(`{"xdt_api__v1__media__shortcode__web_info":{"items":[]}}`)

	wrapped, err := Wrap("data", inner)
	require.NoError(t, err)
	got, ok := wrapped.Get("data")
	require.True(t, ok)
	assert.True(t, Equal(inner, got))

	dotted, err := Wrap("a.b", MustParse(`1`))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.b"}, dotted.Keys())
}
