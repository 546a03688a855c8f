package cypher

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/graphledger/internal/descriptor"
)

// Search types of a string field: the value must start, contain (middle),
// end or equal the field.
var stringAffixes = map[string][2]string{
	"S": {"", ".*"},
	"M": {".*", ".*"},
	"E": {".*", ""},
	"=": {"", ""},
}

var numberOperators = map[string]bool{
	"<": true, ">": true, "<=": true, ">=": true, "=": true, "<>": true,
}

// TableNodeSearch compiles a tabular search over nodes of one label (or all
// non-metadata labels). Nodes the caller has trashed are never returned.
func (c *Compiler) TableNodeSearch(s *descriptor.TableSearch, user string) (Statement, error) {
	b := NewBuilder()

	name := s.Name
	if name == "" {
		name = "n"
	}
	n := Ident(name)

	match := ""
	if s.Owner != nil {
		match += "(o:people)<-[:Owner]-"
	}
	match += "(" + n
	if s.Type != "" && s.Type != "all" {
		match += ":" + Ident(s.Type)
	}
	match += ")"
	if s.Permissions != "" && s.Permissions != "all" {
		match += "-[:Permissions]->(t:M_LoginTable)"
	}

	patterns := []string{match}
	with := []string{n}
	var linkChecks []string
	for i, guid := range s.Links {
		link := fmt.Sprintf("link%d", i)
		patterns = append(patterns, fmt.Sprintf("(%s {M_GUID: %s})", link, b.Param(guid)))
		linkChecks = append(linkChecks, fmt.Sprintf("MATCH (%s)-[:ViewLink]-(%s)", n, link))
	}
	patterns = append(patterns, "(a)")

	b.Filter("where", "a.M_GUID = "+b.Named("user", user))
	b.Filter("where", "NOT (a)-[:Trash]->("+n+")")
	if s.Type == "all" {
		b.Filter("where", "NOT labels("+n+")[0] STARTS WITH 'M_'")
	}

	for _, f := range s.Where {
		pred, err := fieldPredicate(b, n, f)
		if err != nil {
			return Statement{}, err
		}
		b.Filter("where", pred)
	}

	if s.Owner != nil {
		pattern, err := stringPattern(s.Owner.SearchType, s.Owner.Value)
		if err != nil {
			return Statement{}, &PredicateError{Field: "owner", Reason: err.Error()}
		}
		b.Filter("where", "o.name =~ "+b.Param(pattern))
	}

	switch s.Permissions {
	case "users":
		b.Filter("where", "t.name = 'User'")
	case "admins":
		b.Filter("where", "t.name = 'Admin'")
	case "allUsers", "all", "":
	default:
		return Statement{}, &PredicateError{
			Field:  "permissions",
			Reason: fmt.Sprintf("unknown permission filter %q (want users, admins, allUsers or all)", s.Permissions),
		}
	}

	ret := "RETURN DISTINCT " + n
	var optional []string
	if s.Type == "people" {
		optional = append(optional, "OPTIONAL MATCH ("+n+")-[:Permissions]->(perm:M_LoginTable)")
		with = append(with, "perm")
		ret += ", perm.name AS permissions"
	}
	optional = append(optional, "OPTIONAL MATCH ("+n+")-[:Owner]->(owner:people)")
	with = append(with, "owner")
	ret += ", owner.name AS owner"
	for i := range s.Links {
		with = append(with, fmt.Sprintf("link%d", i))
	}

	var prefix []string
	if s.Type == "all" {
		prefix = append(prefix, "labels("+n+")[0]")
	}

	clauses := []string{
		"MATCH " + strings.Join(patterns, ", "),
		b.Where("where"),
	}
	clauses = append(clauses, optional...)
	clauses = append(clauses, "WITH "+strings.Join(with, ", "))
	clauses = append(clauses, linkChecks...)
	clauses = append(clauses,
		ret,
		b.OrderBy(descriptor.ResolveOrder(s.OrderBy, descriptor.Slot(name)), prefix...),
		b.Limit(s.Limit),
	)
	return b.statement(nil, clauses...), nil
}

func fieldPredicate(b *Builder, n string, f descriptor.SearchField) (string, error) {
	target := n + "." + Ident(f.Field)
	switch f.FieldType {
	case "string":
		pattern, err := stringPattern(f.SearchType, descriptor.Stringify(f.Value))
		if err != nil {
			return "", &PredicateError{Field: f.Field, Reason: err.Error()}
		}
		return target + " =~ " + b.Param(pattern), nil
	case "number", "":
		if !numberOperators[f.SearchType] {
			return "", &PredicateError{
				Field:  f.Field,
				Reason: fmt.Sprintf("unknown number search type %q", f.SearchType),
			}
		}
		value, err := numeric(f.Value)
		if err != nil {
			return "", &PredicateError{Field: f.Field, Reason: err.Error()}
		}
		return target + " " + f.SearchType + " " + b.Param(value), nil
	default:
		return "", &PredicateError{
			Field:  f.Field,
			Reason: fmt.Sprintf("unknown field type %q (want string or number)", f.FieldType),
		}
	}
}

// stringPattern builds a case-insensitive regex. The value itself is always
// matched literally.
func stringPattern(searchType, value string) (string, error) {
	affix, ok := stringAffixes[searchType]
	if !ok {
		return "", fmt.Errorf("unknown string search type %q (want S, M, E or =)", searchType)
	}
	return "(?i)" + affix[0] + regexp.QuoteMeta(value) + affix[1], nil
}

func numeric(v any) (any, error) {
	switch val := descriptor.Scalar(v).(type) {
	case int64, float64:
		return val, nil
	case int:
		return int64(val), nil
	case string:
		s := strings.TrimSpace(val)
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
		return nil, fmt.Errorf("%q is not a number", val)
	default:
		return nil, fmt.Errorf("value of type %T is not a number", v)
	}
}
