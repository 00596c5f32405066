package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/chainharness/internal/ir"
)

// marshalArgs converts call arguments to canonical JSON TEXT for storage.
func marshalArgs(args ir.Object) (string, error) {
	if args == nil {
		args = ir.Object{}
	}
	data, err := ir.MarshalCanonical(args)
	if err != nil {
		return "", fmt.Errorf("marshal args: %w", err)
	}
	return string(data), nil
}

// marshalResult converts a return value to canonical JSON TEXT, or NULL
// when there is none.
func marshalResult(v ir.Value) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return string(data), nil
}

func marshalValue(v ir.Value) (string, error) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// marshalLogs stores log lines as a JSON array. An empty list is "[]".
func marshalLogs(logs []string) (string, error) {
	if logs == nil {
		logs = []string{}
	}
	data, err := ir.MarshalCanonical(logs)
	if err != nil {
		return "", fmt.Errorf("marshal logs: %w", err)
	}
	return string(data), nil
}

// unmarshalArgs parses canonical JSON TEXT to an Object. Large integers
// survive because ir decodes numbers via json.Number.
func unmarshalArgs(data string) (ir.Object, error) {
	if data == "" || data == "{}" {
		return ir.Object{}, nil
	}
	var obj ir.Object
	if err := json.Unmarshal([]byte(data), &obj); err != nil {
		return nil, fmt.Errorf("unmarshal args: %w", err)
	}
	return obj, nil
}

func unmarshalValue(data string) (ir.Value, error) {
	return ir.Unmarshal([]byte(data))
}

func unmarshalLogs(data string) ([]string, error) {
	var logs []string
	if err := json.Unmarshal([]byte(data), &logs); err != nil {
		return nil, fmt.Errorf("unmarshal logs: %w", err)
	}
	if logs == nil {
		logs = []string{}
	}
	return logs, nil
}
