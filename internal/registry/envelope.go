package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/hackgods/registry-scheduling/internal/domain"
)

var jsonNull = []byte("null")

// List decodes a registry list field that may be absent, null, a single
// object or an array.
type List[T any] []T

func (l *List[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, jsonNull) {
		*l = nil
		return nil
	}
	if b[0] == '[' {
		var items []T
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		*l = items
		return nil
	}
	var one T
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*l = List[T]{one}
	return nil
}

// Ident is an identifier the registry sends either as a string or a number.
type Ident string

func (id *Ident) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, jsonNull) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = Ident(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("ident: %w", err)
	}
	*id = Ident(n.String())
	return nil
}

func (id Ident) String() string { return string(id) }

// Time captures a registry date in its raw form. Numbers are epoch
// milliseconds and are kept as a "/Date(ms)/" envelope; strings are kept
// verbatim. Decoding to an instant is left to the datetime package.
type Time struct {
	Raw string
}

func (t *Time) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, jsonNull) {
		t.Raw = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		t.Raw = strings.TrimSpace(s)
		return nil
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return fmt.Errorf("registry time: %w", err)
	}
	t.Raw = fmt.Sprintf("/Date(%d)/", n)
	return nil
}

func (t Time) IsZero() bool { return t.Raw == "" }

type wireError struct {
	IDError          Ident  `json:"idError"`
	ErrorDescription string `json:"errorDescription"`
}

type errorList struct {
	Error List[wireError] `json:"error"`
}

// envelope is embedded in every registry response.
type envelope struct {
	Success   *bool     `json:"success,omitempty"`
	ErrorList errorList `json:"errorList"`
}

type response interface {
	failure(op string) error
}

func (e *envelope) failure(op string) error {
	if len(e.ErrorList.Error) > 0 {
		first := e.ErrorList.Error[0]
		descriptions := make([]string, 0, len(e.ErrorList.Error))
		for _, we := range e.ErrorList.Error {
			if d := strings.TrimSpace(we.ErrorDescription); d != "" {
				descriptions = append(descriptions, d)
			}
		}
		return &domain.RegistryError{
			Op:          op,
			Code:        first.IDError.String(),
			Description: strings.Join(descriptions, "; "),
		}
	}
	if e.Success != nil && !*e.Success {
		return &domain.RegistryError{Op: op}
	}
	return nil
}
