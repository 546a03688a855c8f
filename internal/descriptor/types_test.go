package descriptor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEntity_PreservesPropertyOrder(t *testing.T) {
	raw := json.RawMessage(`{"type":"people","properties":{"zeta":"z","alpha":1,"mid":2.5,"flag":true}}`)

	e, err := DecodeEntity(raw)
	require.NoError(t, err)

	require.Len(t, e.Properties, 4)
	assert.Equal(t, Property{Key: "zeta", Value: "z"}, e.Properties[0])
	assert.Equal(t, Property{Key: "alpha", Value: int64(1)}, e.Properties[1])
	assert.Equal(t, Property{Key: "mid", Value: 2.5}, e.Properties[2])
	assert.Equal(t, Property{Key: "flag", Value: true}, e.Properties[3])
	assert.Equal(t, "people", e.Type)
	assert.True(t, e.ShouldReturn())
}

func TestDecodeEntity_EmptyPayload(t *testing.T) {
	for _, raw := range []string{"", "null", "{}"} {
		e, err := DecodeEntity(json.RawMessage(raw))
		require.NoError(t, err, "payload %q", raw)
		assert.Empty(t, e.Type)
		assert.Nil(t, e.ID)
		assert.Empty(t, e.Properties)
	}
}

func TestDecodeEntity_ReturnFalse(t *testing.T) {
	e, err := DecodeEntity(json.RawMessage(`{"return":false,"name":"person","id":12}`))
	require.NoError(t, err)

	assert.False(t, e.ShouldReturn())
	assert.Equal(t, "person", e.Name)
	require.NotNil(t, e.ID)
	assert.Equal(t, int64(12), *e.ID)
}

func TestProperties_SetReplacesInPlace(t *testing.T) {
	props := Properties{{Key: "a", Value: "x"}, {Key: "b", Value: int64(2)}}

	props.Set("a", "y")
	props.Set("c", false)

	assert.Equal(t, Properties{
		{Key: "a", Value: "y"},
		{Key: "b", Value: int64(2)},
		{Key: "c", Value: false},
	}, props)

	v, ok := props.Get("b")
	assert.True(t, ok)
	assert.Equal(t, int64(2), v)
}

func TestProperties_MarshalKeepsOrder(t *testing.T) {
	props := Properties{{Key: "z", Value: "1"}, {Key: "a", Value: int64(2)}}

	b, err := json.Marshal(props)
	require.NoError(t, err)
	assert.Equal(t, `{"z":"1","a":2}`, string(b))
}

func TestChange_Literal(t *testing.T) {
	no := false

	tests := []struct {
		name   string
		change Change
		want   any
	}{
		{"string stays string", Change{Value: "Amy"}, "Amy"},
		{"number coerced to string", Change{Value: json.Number("42")}, "42"},
		{"float text kept verbatim", Change{Value: json.Number("1.50")}, "1.50"},
		{"bool coerced to string", Change{Value: true}, "true"},
		{"null coerced to string", Change{Value: nil}, "null"},
		{"typed integer", Change{Value: json.Number("42"), String: &no}, int64(42)},
		{"typed float", Change{Value: json.Number("1.5"), String: &no}, 1.5},
		{"typed bool", Change{Value: false, String: &no}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.change.Literal())
		})
	}
}

func TestResolveChanges_ItemIsSticky(t *testing.T) {
	changes := []Change{
		{Property: "a"},
		{Item: SlotFrom, Property: "b"},
		{Property: "c"},
		{Item: SlotRel, Property: "d"},
	}

	resolved := ResolveChanges(changes, SlotRel)

	assert.Equal(t, SlotRel, resolved[0].Item)
	assert.Equal(t, SlotFrom, resolved[1].Item)
	assert.Equal(t, SlotFrom, resolved[2].Item)
	assert.Equal(t, SlotRel, resolved[3].Item)
	assert.Empty(t, changes[0].Item, "input must not be modified")
}

func TestResolveOrder_ItemIsSticky(t *testing.T) {
	order := ResolveOrder([]Order{{Name: "a"}, {Item: SlotEnd, Name: "b", Direction: "D"}, {Name: "c"}}, SlotStart)

	assert.Equal(t, SlotStart, order[0].Item)
	assert.Equal(t, SlotEnd, order[1].Item)
	assert.True(t, order[1].Descending())
	assert.Equal(t, SlotEnd, order[2].Item)
	assert.False(t, order[2].Descending())
}

func TestLimit_Decode(t *testing.T) {
	tests := []struct {
		raw  string
		want Limit
		set  bool
	}{
		{`{"limit":5}`, 5, true},
		{`{"limit":"9"}`, 9, true},
		{`{"limit":""}`, 0, false},
		{`{"limit":0}`, 0, false},
		{`{"limit":-3}`, -3, false},
		{`{}`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			p, err := DecodePattern(json.RawMessage(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Limit)
			assert.Equal(t, tt.set, p.Limit.Set())
		})
	}
}

func TestLimit_RejectsText(t *testing.T) {
	_, err := DecodePattern(json.RawMessage(`{"limit":"ten"}`))
	require.Error(t, err)
}

func TestPattern_EntityNeverNil(t *testing.T) {
	p := &Pattern{}
	e := p.Entity(SlotFrom)
	require.NotNil(t, e)
	assert.True(t, e.ShouldReturn())
	assert.Nil(t, p.From, "reading a slot must not populate it")
}

func TestPattern_CloneIsDeep(t *testing.T) {
	p, err := DecodePattern(json.RawMessage(`{"rel":{"type":"Owner","merge":true,"properties":{"a":"1"}},"changes":[{"property":"x","value":"y"}]}`))
	require.NoError(t, err)

	c := p.Clone()
	c.Rel.Merge = false
	c.Rel.Properties.Set("b", "2")
	c.Changes[0].Property = "z"

	assert.True(t, p.Rel.Merge)
	assert.Len(t, p.Rel.Properties, 1)
	assert.Equal(t, "x", p.Changes[0].Property)
}

func TestDecodeTableSearch_PreservesWhereOrder(t *testing.T) {
	raw := json.RawMessage(`{
		"type":"people","name":"n",
		"where":{"nameLast":{"fieldType":"string","searchType":"S","value":"Fi"},"age":{"fieldType":"number","searchType":">","value":30}},
		"owner":{"value":"Bol","searchType":"S"},
		"permissions":"users",
		"links":["g1"],
		"orderBy":[{"name":"nameLast","direction":"D"}],
		"limit":"9"}`)

	s, err := DecodeTableSearch(raw)
	require.NoError(t, err)

	require.Len(t, s.Where, 2)
	assert.Equal(t, "nameLast", s.Where[0].Field)
	assert.Equal(t, "S", s.Where[0].SearchType)
	assert.Equal(t, "age", s.Where[1].Field)
	assert.Equal(t, json.Number("30"), s.Where[1].Value)
	assert.Equal(t, "Bol", s.Owner.Value)
	assert.Equal(t, []string{"g1"}, s.Links)
	assert.Equal(t, Limit(9), s.Limit)
}

func TestDecodeMetaQuery(t *testing.T) {
	name, err := DecodeMetaQuery(json.RawMessage(`"keysNode"`))
	require.NoError(t, err)
	assert.Equal(t, "keysNode", name)

	_, err = DecodeMetaQuery(json.RawMessage(`{"name":"keysNode"}`))
	require.Error(t, err)
}

func TestDecodeRequest(t *testing.T) {
	req, err := DecodeRequest([]byte(`{"function":"getChangeLogs","query":{"min":5,"count":true},"GUID":"u-1"}`))
	require.NoError(t, err)
	assert.Equal(t, "getChangeLogs", req.Function)
	assert.Equal(t, "u-1", req.GUID)

	q, err := DecodeChangeLogQuery(req.Query)
	require.NoError(t, err)
	assert.True(t, q.Count)
	assert.False(t, q.External)
	require.NotNil(t, q.Min)
	assert.Equal(t, int64(5), *q.Min)
}

func TestEntryFromProperties(t *testing.T) {
	e, err := EntryFromProperties(map[string]any{
		"number":    int64(7),
		"item_GUID": "item",
		"user_GUID": "user",
		"action":    "change",
		"itemType":  "node",
		"attribute": "name",
		"value":     "Amy",
		"M_GUID":    "log",
	})
	require.NoError(t, err)

	assert.Equal(t, ChangeLogEntry{
		Number:    7,
		ItemGUID:  "item",
		UserGUID:  "user",
		Action:    ActionChange,
		ItemType:  KindNode,
		Attribute: "name",
		Value:     "Amy",
		GUID:      "log",
	}, e)

	_, err = EntryFromProperties(map[string]any{"action": "create"})
	require.Error(t, err)
}
