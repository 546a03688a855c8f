package cypher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphledger/internal/descriptor"
)

func TestMetaData(t *testing.T) {
	c, _ := newTestCompiler()

	for _, name := range MetaQueryNames() {
		t.Run(name, func(t *testing.T) {
			stmt, err := c.MetaData(name, caller)
			require.NoError(t, err)
			assert.NotEmpty(t, stmt.Cypher)
			assert.Empty(t, stmt.Numbers)
		})
	}
}

func TestMetaData_MyTrashIsCallerScoped(t *testing.T) {
	c, _ := newTestCompiler()

	stmt, err := c.MetaData("myTrash", caller)
	require.NoError(t, err)

	assert.Contains(t, stmt.Cypher, "WHERE user.M_GUID = $user")
	assert.Equal(t, map[string]any{"user": caller}, stmt.Params)
}

func TestMetaData_Unknown(t *testing.T) {
	c, _ := newTestCompiler()

	_, err := c.MetaData("everything", caller)
	var unknown *UnknownQueryError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "everything", unknown.Name)
}

func TestMetaQueryNames(t *testing.T) {
	assert.Equal(t,
		[]string{"allTrash", "keysNode", "keysRelation", "myTrash", "nodes", "relations"},
		MetaQueryNames())
}

func TestChangeLogs(t *testing.T) {
	c, _ := newTestCompiler()
	low := int64(5)

	stmt, err := c.ChangeLogs(&descriptor.ChangeLogQuery{Min: &low, Limit: 100}, caller)
	require.NoError(t, err)

	assert.Equal(t,
		"MATCH (n:M_ChangeLog) WHERE n.user_GUID = $user AND n.number >= $p0 RETURN n ORDER BY n.number LIMIT $p1",
		stmt.Cypher)
	assert.Equal(t, map[string]any{"user": caller, "p0": int64(5), "p1": int64(100)}, stmt.Params)
}

func TestChangeLogs_ExternalCount(t *testing.T) {
	c, _ := newTestCompiler()

	stmt, err := c.ChangeLogs(&descriptor.ChangeLogQuery{External: true, Count: true, Limit: 3}, caller)
	require.NoError(t, err)

	assert.Equal(t,
		"MATCH (n:M_ChangeLog) WHERE n.user_GUID =~ '[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}' "+
			"AND NOT n.user_GUID = $user RETURN count(n) AS count",
		stmt.Cypher)
}

func TestChangeLogs_MinZeroIsAFilter(t *testing.T) {
	c, _ := newTestCompiler()
	zero := int64(0)

	stmt, err := c.ChangeLogs(&descriptor.ChangeLogQuery{Min: &zero}, caller)
	require.NoError(t, err)
	assert.Contains(t, stmt.Cypher, "n.number >= $p0")
}

func TestHighWaterMark(t *testing.T) {
	stmt := HighWaterMark()
	assert.Equal(t, "MATCH (n:M_ChangeLog) RETURN max(n.number) AS number", stmt.Cypher)
	assert.Empty(t, stmt.Params)
	assert.Empty(t, stmt.Numbers)
}
