package gate

import (
	"fmt"
	"net/mail"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// DateLayout is the format date fields are entered in.
const DateLayout = "2006-01-02"

// Function is a helper callable from rule expressions. Arguments arrive as
// the engine produced them: draft fields are strings, absent fields are nil.
type Function func(args ...any) (any, error)

type namedFunction struct {
	name string
	fn   Function
}

// FunctionRegistry holds the helpers bound into every evaluator. Lookups
// ignore case; Names keeps the spelling used at registration.
type FunctionRegistry struct {
	mu        sync.RWMutex
	functions map[string]namedFunction
}

// NewFunctionRegistry returns an empty registry.
func NewFunctionRegistry() *FunctionRegistry {
	return &FunctionRegistry{functions: map[string]namedFunction{}}
}

// NewFieldFunctions returns a registry holding the draft field helpers:
//
//	filled(v)           v is a non-blank string
//	minLength(v, n)     v has at least n characters after trimming
//	isDate(v)           v parses with DateLayout
//	isEmail(v)          v is a single e-mail address
//	daysUntil(v, now)   whole days from now to the date in v
//
// Every evaluator starts from this set.
func NewFieldFunctions() *FunctionRegistry {
	r := NewFunctionRegistry()
	r.set("filled", fieldFilled)
	r.set("minLength", fieldMinLength)
	r.set("isDate", fieldIsDate)
	r.set("isEmail", fieldIsEmail)
	r.set("daysUntil", fieldDaysUntil)
	return r
}

// withFieldFunctions layers extra over the field helpers; extra wins on
// name clashes.
func withFieldFunctions(extra *FunctionRegistry) *FunctionRegistry {
	r := NewFieldFunctions()
	if extra == nil {
		return r
	}
	extra.mu.RLock()
	defer extra.mu.RUnlock()
	for _, entry := range extra.functions {
		r.set(entry.name, entry.fn)
	}
	return r
}

// Register adds fn under name. Registering a name twice is an error.
func (r *FunctionRegistry) Register(name string, fn Function) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("gate: function name must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("gate: function %q is nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = map[string]namedFunction{}
	}
	key := strings.ToLower(name)
	if existing, ok := r.functions[key]; ok {
		return fmt.Errorf("gate: function %q already registered as %q", name, existing.name)
	}
	r.functions[key] = namedFunction{name: name, fn: fn}
	return nil
}

func (r *FunctionRegistry) set(name string, fn Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.functions == nil {
		r.functions = map[string]namedFunction{}
	}
	r.functions[strings.ToLower(name)] = namedFunction{name: name, fn: fn}
}

// Clone returns a copy that later registrations on r do not affect.
func (r *FunctionRegistry) Clone() *FunctionRegistry {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	clone := &FunctionRegistry{functions: make(map[string]namedFunction, len(r.functions))}
	for key, entry := range r.functions {
		clone.functions[key] = entry
	}
	return clone
}

// Call runs the function registered under name.
func (r *FunctionRegistry) Call(name string, args ...any) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("gate: function registry is nil")
	}
	r.mu.RLock()
	entry, ok := r.functions[strings.ToLower(strings.TrimSpace(name))]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("gate: function %q not registered", name)
	}
	return entry.fn(args...)
}

// Names returns the registered names, sorted.
func (r *FunctionRegistry) Names() []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.functions))
	for _, entry := range r.functions {
		names = append(names, entry.name)
	}
	slices.Sort(names)
	return names
}

func fieldFilled(args ...any) (any, error) {
	value, err := fieldArg("filled", args, 1)
	if err != nil {
		return nil, err
	}
	return strings.TrimSpace(value) != "", nil
}

func fieldMinLength(args ...any) (any, error) {
	value, err := fieldArg("minLength", args, 2)
	if err != nil {
		return nil, err
	}
	n, ok := toInt(args[1])
	if !ok {
		return nil, fmt.Errorf("gate: minLength: length must be a number, got %T", args[1])
	}
	return utf8.RuneCountInString(strings.TrimSpace(value)) >= n, nil
}

func fieldIsDate(args ...any) (any, error) {
	value, err := fieldArg("isDate", args, 1)
	if err != nil {
		return nil, err
	}
	_, perr := time.Parse(DateLayout, strings.TrimSpace(value))
	return perr == nil, nil
}

func fieldIsEmail(args ...any) (any, error) {
	value, err := fieldArg("isEmail", args, 1)
	if err != nil {
		return nil, err
	}
	value = strings.TrimSpace(value)
	addr, perr := mail.ParseAddress(value)
	return perr == nil && addr.Address == value, nil
}

// fieldDaysUntil counts calendar days in now's location, so a date equal to
// today yields 0 and yesterday yields -1.
func fieldDaysUntil(args ...any) (any, error) {
	value, err := fieldArg("daysUntil", args, 2)
	if err != nil {
		return nil, err
	}
	now, ok := args[1].(time.Time)
	if !ok {
		return nil, fmt.Errorf("gate: daysUntil: second argument must be a time, got %T", args[1])
	}
	date, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), now.Location())
	if err != nil {
		return nil, fmt.Errorf("gate: daysUntil: %w", err)
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return int(date.Sub(today).Round(time.Hour).Hours() / 24), nil
}

// fieldArg checks the arity and returns the first argument as a string.
// A nil argument is an absent field and reads as "".
func fieldArg(name string, args []any, arity int) (string, error) {
	if len(args) != arity {
		return "", fmt.Errorf("gate: %s expects %d argument(s), got %d", name, arity, len(args))
	}
	switch v := args[0].(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("gate: %s: field must be a string, got %T", name, args[0])
	}
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), n == float64(int(n))
	default:
		return 0, false
	}
}
