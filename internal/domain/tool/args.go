package tool

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var ErrInvalidArguments = errors.New("invalid tool arguments")

// Args are the decoded arguments of a range tool. Dates are passed through
// exactly as given; only their JSON type is checked.
type Args struct {
	InitDate string
	EndDate  string
	BlogID   int64
}

// ParseArgs decodes raw tool arguments against d's parameter schema.
// Profiles tools accept and ignore any object.
func ParseArgs(d Descriptor, raw json.RawMessage) (Args, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = json.RawMessage(`{}`)
	}

	var input map[string]json.RawMessage
	if err := json.Unmarshal(raw, &input); err != nil {
		return Args{}, fmt.Errorf("%w: arguments must be a json object", ErrInvalidArguments)
	}
	if d.Kind != KindRange {
		return Args{}, nil
	}

	if err := checkFields(input, d.Params()); err != nil {
		return Args{}, err
	}

	var args Args
	var err error
	if args.InitDate, err = stringArg(input, ArgInitDate); err != nil {
		return Args{}, err
	}
	if args.EndDate, err = stringArg(input, ArgEndDate); err != nil {
		return Args{}, err
	}
	if args.BlogID, err = integerArg(input, ArgBlogID); err != nil {
		return Args{}, err
	}
	return args, nil
}

// checkFields enforces required parameters and rejects unknown ones.
func checkFields(input map[string]json.RawMessage, params []Param) error {
	allowed := make(map[string]struct{}, len(params))
	for _, p := range params {
		allowed[p.Name] = struct{}{}
		if _, ok := input[p.Name]; !ok {
			return fmt.Errorf("%w: missing required field %q", ErrInvalidArguments, p.Name)
		}
	}

	var unknown []string
	for key := range input {
		if _, ok := allowed[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: unknown field %q", ErrInvalidArguments, unknown[0])
	}
	return nil
}

func stringArg(input map[string]json.RawMessage, name string) (string, error) {
	var s string
	if err := json.Unmarshal(input[name], &s); err != nil {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidArguments, name)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: %s must not be empty", ErrInvalidArguments, name)
	}
	return s, nil
}

// integerArg accepts a JSON integer or a string of digits; agents send both.
func integerArg(input map[string]json.RawMessage, name string) (int64, error) {
	raw := input[name]

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		n, convErr := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if convErr != nil {
			return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidArguments, name)
		}
		return n, nil
	}

	var num json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&num); err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidArguments, name)
	}
	if n, err := num.Int64(); err == nil {
		return n, nil
	}
	f, err := num.Float64()
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidArguments, name)
	}
	return int64(f), nil
}
