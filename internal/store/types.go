package store

import "encoding/json"

// Status is the result of a journaled request.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Request is one journaled engine request.
type Request struct {
	ID        string
	Seq       int64
	Operation string
	Caller    string
	Payload   json.RawMessage
}

// Statement is one statement sent to the graph store while serving a
// request.
type Statement struct {
	Cypher string         `json:"cypher" msgpack:"cypher"`
	Params map[string]any `json:"params" msgpack:"params"`
}

// Outcome records how a request ended.
type Outcome struct {
	RequestID  string
	Status     Status
	ErrorCode  string
	Message    string
	Rows       int
	Numbers    []int64
	Statements []Statement
}

// Entry pairs a request with its outcome. Outcome is nil while the
// request has not finished.
type Entry struct {
	Request Request
	Outcome *Outcome
}
