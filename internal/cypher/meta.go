package cypher

import (
	"sort"

	"github.com/roach88/graphledger/internal/descriptor"
)

// metaQueries are the fixed diagnostic queries. Only myTrash takes a
// parameter.
var metaQueries = map[string]string{
	"nodes":        "MATCH (n) UNWIND labels(n) AS L RETURN DISTINCT L, count(L) AS count",
	"keysNode":     "MATCH (p) UNWIND keys(p) AS key RETURN DISTINCT key, labels(p) AS label, count(key) AS count ORDER BY key",
	"relations":    "MATCH (a)-[r]->(b) RETURN DISTINCT labels(a), type(r), labels(b), count(r) AS count ORDER BY type(r)",
	"keysRelation": "MATCH ()-[r]->() UNWIND keys(r) AS key RETURN DISTINCT key, type(r), count(key) AS count",
	"myTrash":      "MATCH (user)-[rel:Trash]->(node) WHERE user.M_GUID = $user RETURN node.name AS name, node.M_GUID AS GUID, labels(node) AS labels, rel.reason AS reason, node",
	"allTrash":     "MATCH ()-[rel:Trash]->(node) RETURN node.M_GUID AS GUID, node.name AS name, count(rel) AS count",
}

// MetaQueryNames lists the names MetaData accepts.
func MetaQueryNames() []string {
	names := make([]string, 0, len(metaQueries))
	for name := range metaQueries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// MetaData returns the fixed diagnostic query called name.
func (c *Compiler) MetaData(name, user string) (Statement, error) {
	text, ok := metaQueries[name]
	if !ok {
		return Statement{}, &UnknownQueryError{Name: name}
	}
	b := NewBuilder()
	if name == "myTrash" {
		b.Named("user", user)
	}
	return b.statement(nil, text), nil
}

// userGUIDPattern matches any canonical GUID, so external queries skip
// entries written by system processes without one.
const userGUIDPattern = "'[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}'"

// ChangeLogs pages through the change log in number order. With External
// set it selects entries written by anyone but user.
func (c *Compiler) ChangeLogs(q *descriptor.ChangeLogQuery, user string) (Statement, error) {
	b := NewBuilder()
	ref := b.Named("user", user)

	if q.External {
		b.Filter("where", "n.user_GUID =~ "+userGUIDPattern)
		b.Filter("where", "NOT n.user_GUID = "+ref)
	} else {
		b.Filter("where", "n.user_GUID = "+ref)
	}
	if q.Min != nil {
		b.Filter("where", "n.number >= "+b.Param(*q.Min))
	}

	match := "MATCH (n:" + descriptor.ChangeLogLabel + ")"
	if q.Count {
		return b.statement(nil, match, b.Where("where"), "RETURN count(n) AS count"), nil
	}
	return b.statement(nil,
		match,
		b.Where("where"),
		"RETURN n ORDER BY n.number",
		b.Limit(q.Limit),
	), nil
}

// HighWaterMark returns the highest change log number in the store as
// "number", or null when the log is empty.
func HighWaterMark() Statement {
	return NewBuilder().statement(nil,
		"MATCH (n:"+descriptor.ChangeLogLabel+")",
		"RETURN max(n.number) AS number",
	)
}
