package store

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

func marshalNumbers(numbers []int64) ([]byte, error) {
	if numbers == nil {
		numbers = []int64{}
	}
	data, err := msgpack.Marshal(numbers)
	if err != nil {
		return nil, fmt.Errorf("marshal numbers: %w", err)
	}
	return data, nil
}

func unmarshalNumbers(data []byte) ([]int64, error) {
	numbers := []int64{}
	if len(data) == 0 {
		return numbers, nil
	}
	if err := msgpack.Unmarshal(data, &numbers); err != nil {
		return nil, fmt.Errorf("unmarshal numbers: %w", err)
	}
	return numbers, nil
}

func marshalStatements(stmts []Statement) ([]byte, error) {
	if stmts == nil {
		stmts = []Statement{}
	}
	data, err := msgpack.Marshal(stmts)
	if err != nil {
		return nil, fmt.Errorf("marshal statements: %w", err)
	}
	return data, nil
}

// unmarshalStatements decodes parameters loosely so integers come back as
// int64 and floats as float64, the same types the compiler produced.
func unmarshalStatements(data []byte) ([]Statement, error) {
	stmts := []Statement{}
	if len(data) == 0 {
		return stmts, nil
	}
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(&stmts); err != nil {
		return nil, fmt.Errorf("unmarshal statements: %w", err)
	}
	return stmts, nil
}
