package simhost

import (
	"encoding/json"
	"fmt"
)

type call struct {
	id   string
	args args
}

// args decodes positional call arguments on demand.
type args []json.RawMessage

func (a args) decode(i int, v any) error {
	if i >= len(a) {
		return fail("E_BAD_ARGS", fmt.Sprintf("missing argument %d", i))
	}
	if err := json.Unmarshal(a[i], v); err != nil {
		return fail("E_BAD_ARGS", fmt.Sprintf("argument %d: %v", i, err))
	}
	return nil
}

func (a args) str(i int) (string, error) {
	var s string
	err := a.decode(i, &s)
	return s, err
}

func (a args) num(i int) (float64, error) {
	var f float64
	err := a.decode(i, &f)
	return f, err
}

func (a args) integer(i int) (int, error) {
	f, err := a.num(i)
	return int(f), err
}

func (a args) boolean(i int) (bool, error) {
	var b bool
	err := a.decode(i, &b)
	return b, err
}

func (a args) strings(i int) ([]string, error) {
	var s []string
	err := a.decode(i, &s)
	return s, err
}

func (a args) object(i int) (map[string]any, error) {
	var m map[string]any
	err := a.decode(i, &m)
	return m, err
}
