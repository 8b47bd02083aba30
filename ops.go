package dotstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/unkn0wn-root/dotstore/internal/dotpath"
)

func (s *store) Get(ctx context.Context, path string, def any) (any, error) {
	return s.do(ctx, func(doc map[string]any) (any, bool, error) {
		s.reads.Add(1)
		v, ok := dotpath.Get(doc, path)
		if !ok {
			return def, false, nil
		}
		return deepCopy(v), false, nil
	})
}

func (s *store) Has(ctx context.Context, path string) (bool, error) {
	v, err := s.do(ctx, func(doc map[string]any) (any, bool, error) {
		s.reads.Add(1)
		_, ok := dotpath.Get(doc, path)
		return ok, false, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (s *store) Set(ctx context.Context, path string, value any) error {
	return s.SetWith(ctx, path, value, SetOptions{})
}

func (s *store) SetWith(ctx context.Context, path string, value any, o SetOptions) error {
	_, err := s.doMut(ctx, func(doc map[string]any) (any, bool, error) {
		if path == "" {
			return nil, false, ErrEmptyPath
		}
		nv, err := normalize(value)
		if err != nil {
			return nil, false, fmt.Errorf("dotstore: encode value: %w", err)
		}
		existing, exists := dotpath.Get(doc, path)
		out, err := resolveSet(path, existing, exists, nv, o)
		if err != nil {
			return nil, false, err
		}
		if err := dotpath.Set(doc, path, out); err != nil {
			return nil, false, ErrEmptyPath
		}
		return nil, true, nil
	})
	return err
}

func (s *store) Update(ctx context.Context, path string, fn func(any) any) (bool, error) {
	v, err := s.doMut(ctx, func(doc map[string]any) (any, bool, error) {
		if path == "" {
			return nil, false, ErrEmptyPath
		}
		existing, ok := dotpath.Get(doc, path)
		if !ok {
			return false, false, nil
		}
		nv, err := normalize(fn(deepCopy(existing)))
		if err != nil {
			return nil, false, fmt.Errorf("dotstore: encode value: %w", err)
		}
		if err := dotpath.Set(doc, path, nv); err != nil {
			return nil, false, ErrEmptyPath
		}
		return true, true, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (s *store) Toggle(ctx context.Context, path string) (bool, error) {
	v, err := s.doMut(ctx, func(doc map[string]any) (any, bool, error) {
		if path == "" {
			return nil, false, ErrEmptyPath
		}
		existing, ok := dotpath.Get(doc, path)
		if !ok {
			return nil, false, &TypeMismatchError{Path: path, Want: "boolean", Got: "absent"}
		}
		b, isBool := existing.(bool)
		if !isBool {
			return nil, false, &TypeMismatchError{Path: path, Want: "boolean", Got: typeName(existing)}
		}
		if err := dotpath.Set(doc, path, !b); err != nil {
			return nil, false, ErrEmptyPath
		}
		return !b, true, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (s *store) Delete(ctx context.Context, path string) (bool, error) {
	v, err := s.doMut(ctx, func(doc map[string]any) (any, bool, error) {
		if path == "" {
			return nil, false, ErrEmptyPath
		}
		removed := dotpath.Delete(doc, path)
		if removed {
			s.deletes.Add(1)
		}
		return removed, removed, nil
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (s *store) Merge(ctx context.Context, path string, obj map[string]any) error {
	_, err := s.doMut(ctx, func(doc map[string]any) (any, bool, error) {
		nv, err := normalize(obj)
		if err != nil {
			return nil, false, fmt.Errorf("dotstore: encode value: %w", err)
		}
		patch, _ := nv.(map[string]any)
		if patch == nil {
			patch = map[string]any{}
		}

		// Empty path merges into the document root.
		if path == "" {
			for k, v := range patch {
				doc[k] = v
			}
			return nil, true, nil
		}

		existing, ok := dotpath.Get(doc, path)
		if !ok {
			existing = map[string]any{}
		}
		base, isObj := existing.(map[string]any)
		if !isObj {
			return nil, false, &TypeMismatchError{Path: path, Want: "object", Got: typeName(existing)}
		}
		merged := make(map[string]any, len(base)+len(patch))
		for k, v := range base {
			merged[k] = v
		}
		for k, v := range patch {
			merged[k] = v
		}
		if err := dotpath.Set(doc, path, merged); err != nil {
			return nil, false, ErrEmptyPath
		}
		return nil, true, nil
	})
	return err
}

// resolveSet applies the SetOptions precedence against the existing value:
// arithmetic on a numeric existing value, then array append, then object
// merge, then plain overwrite.
func resolveSet(path string, existing any, exists bool, value any, o SetOptions) (any, error) {
	if o.Operation != "" && exists {
		if cur, isNum := toNumber(existing); isNum {
			opnd, ok := toNumber(value)
			if !ok {
				return nil, &TypeMismatchError{Path: path, Want: "number", Got: typeName(value)}
			}
			return applyOp(path, o.Operation, cur, opnd)
		}
	}
	if o.Append && exists {
		if a, isArr := existing.([]any); isArr {
			if b, ok := value.([]any); ok {
				out := make([]any, 0, len(a)+len(b))
				out = append(out, a...)
				out = append(out, b...)
				return out, nil
			}
		}
	}
	if o.Merge && exists {
		if base, isObj := existing.(map[string]any); isObj {
			if patch, ok := value.(map[string]any); ok {
				merged := make(map[string]any, len(base)+len(patch))
				for k, v := range base {
					merged[k] = v
				}
				for k, v := range patch {
					merged[k] = v
				}
				return merged, nil
			}
		}
	}
	return value, nil
}

func applyOp(path, op string, cur, operand float64) (float64, error) {
	switch op {
	case "+":
		return cur + operand, nil
	case "-":
		return cur - operand, nil
	case "*":
		return cur * operand, nil
	case "/":
		if operand == 0 {
			return 0, &DivisionByZeroError{Path: path, Op: op}
		}
		return cur / operand, nil
	case "%":
		if operand == 0 {
			return 0, &DivisionByZeroError{Path: path, Op: op}
		}
		return math.Mod(cur, operand), nil
	case "min":
		return math.Min(cur, operand), nil
	case "max":
		return math.Max(cur, operand), nil
	default:
		return 0, &InvalidOperationError{Op: op}
	}
}

func (s *store) Plus(ctx context.Context, path string, operand float64) (float64, error) {
	return s.arith(ctx, path, "+", operand)
}

func (s *store) Minus(ctx context.Context, path string, operand float64) (float64, error) {
	return s.arith(ctx, path, "-", operand)
}

func (s *store) Multiply(ctx context.Context, path string, operand float64) (float64, error) {
	return s.arith(ctx, path, "*", operand)
}

func (s *store) Divide(ctx context.Context, path string, operand float64) (float64, error) {
	return s.arith(ctx, path, "/", operand)
}

func (s *store) Min(ctx context.Context, path string, operand float64) (float64, error) {
	return s.arith(ctx, path, "min", operand)
}

func (s *store) Max(ctx context.Context, path string, operand float64) (float64, error) {
	return s.arith(ctx, path, "max", operand)
}

// arith runs one numeric operation through the same precedence as SetWith,
// defaulting an absent path to 0.
func (s *store) arith(ctx context.Context, path, op string, operand float64) (float64, error) {
	v, err := s.doMut(ctx, func(doc map[string]any) (any, bool, error) {
		if path == "" {
			return nil, false, ErrEmptyPath
		}
		existing, ok := dotpath.Get(doc, path)
		if !ok {
			existing = float64(0)
		}
		out, err := resolveSet(path, existing, true, operand, SetOptions{Operation: op})
		if err != nil {
			return nil, false, err
		}
		if err := dotpath.Set(doc, path, out); err != nil {
			return nil, false, ErrEmptyPath
		}
		res, _ := toNumber(out)
		return res, true, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

func (s *store) Push(ctx context.Context, path string, items ...any) (int, error) {
	v, err := s.doMut(ctx, func(doc map[string]any) (any, bool, error) {
		if path == "" {
			return nil, false, ErrEmptyPath
		}
		arr, err := arrayAt(doc, path, true)
		if err != nil {
			return nil, false, err
		}
		for _, it := range items {
			nv, nerr := normalize(it)
			if nerr != nil {
				return nil, false, fmt.Errorf("dotstore: encode value: %w", nerr)
			}
			arr = append(arr, nv)
		}
		if err := dotpath.Set(doc, path, arr); err != nil {
			return nil, false, ErrEmptyPath
		}
		return len(arr), true, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (s *store) Pop(ctx context.Context, path string) (any, bool, error) {
	type popped struct {
		v  any
		ok bool
	}
	v, err := s.doMut(ctx, func(doc map[string]any) (any, bool, error) {
		if path == "" {
			return nil, false, ErrEmptyPath
		}
		arr, err := arrayAt(doc, path, true)
		if err != nil {
			return nil, false, err
		}
		if len(arr) == 0 {
			return popped{}, false, nil
		}
		last := arr[len(arr)-1]
		if err := dotpath.Set(doc, path, arr[:len(arr)-1]); err != nil {
			return nil, false, ErrEmptyPath
		}
		return popped{v: deepCopy(last), ok: true}, true, nil
	})
	if err != nil {
		return nil, false, err
	}
	p := v.(popped)
	return p.v, p.ok, nil
}

func (s *store) Unique(ctx context.Context, path string) (int, error) {
	v, err := s.doMut(ctx, func(doc map[string]any) (any, bool, error) {
		if path == "" {
			return nil, false, ErrEmptyPath
		}
		arr, err := arrayAt(doc, path, true)
		if err != nil {
			return nil, false, err
		}
		seen := make(map[string]struct{}, len(arr))
		out := make([]any, 0, len(arr))
		for _, it := range arr {
			k := canonKey(it)
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, it)
		}
		if err := dotpath.Set(doc, path, out); err != nil {
			return nil, false, ErrEmptyPath
		}
		return len(out), true, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (s *store) Reverse(ctx context.Context, path string) error {
	_, err := s.doMut(ctx, func(doc map[string]any) (any, bool, error) {
		if path == "" {
			return nil, false, ErrEmptyPath
		}
		arr, err := arrayAt(doc, path, true)
		if err != nil {
			return nil, false, err
		}
		for i, j := 0, len(arr)-1; i < j; i, j = i+1, j-1 {
			arr[i], arr[j] = arr[j], arr[i]
		}
		if err := dotpath.Set(doc, path, arr); err != nil {
			return nil, false, ErrEmptyPath
		}
		return nil, true, nil
	})
	return err
}

// Sort orders the array at path: numerically when every element is a number,
// lexically when every element is a string, otherwise by each element's
// canonical JSON form.
func (s *store) Sort(ctx context.Context, path string) error {
	_, err := s.doMut(ctx, func(doc map[string]any) (any, bool, error) {
		if path == "" {
			return nil, false, ErrEmptyPath
		}
		arr, err := arrayAt(doc, path, true)
		if err != nil {
			return nil, false, err
		}
		sortValues(arr)
		if err := dotpath.Set(doc, path, arr); err != nil {
			return nil, false, ErrEmptyPath
		}
		return nil, true, nil
	})
	return err
}

func (s *store) Find(ctx context.Context, path string, pred func(any) bool) (any, bool, error) {
	type found struct {
		v  any
		ok bool
	}
	v, err := s.do(ctx, func(doc map[string]any) (any, bool, error) {
		s.reads.Add(1)
		arr, err := arrayAt(doc, path, false)
		if err != nil {
			return nil, false, err
		}
		for _, it := range arr {
			c := deepCopy(it)
			if pred(c) {
				return found{v: c, ok: true}, false, nil
			}
		}
		return found{}, false, nil
	})
	if err != nil {
		return nil, false, err
	}
	f := v.(found)
	return f.v, f.ok, nil
}

func (s *store) Filter(ctx context.Context, path string, pred func(any) bool) ([]any, error) {
	v, err := s.do(ctx, func(doc map[string]any) (any, bool, error) {
		s.reads.Add(1)
		arr, err := arrayAt(doc, path, false)
		if err != nil {
			return nil, false, err
		}
		out := make([]any, 0, len(arr))
		for _, it := range arr {
			c := deepCopy(it)
			if pred(c) {
				out = append(out, c)
			}
		}
		return out, false, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]any), nil
}

// Slice returns elements in [start, end). Negative indices count back from
// the array length; out-of-range bounds are clamped, so a large end takes
// the tail.
func (s *store) Slice(ctx context.Context, path string, start, end int) ([]any, error) {
	v, err := s.do(ctx, func(doc map[string]any) (any, bool, error) {
		s.reads.Add(1)
		arr, err := arrayAt(doc, path, false)
		if err != nil {
			return nil, false, err
		}
		lo, hi := clampRange(start, end, len(arr))
		out := make([]any, 0, hi-lo)
		for _, it := range arr[lo:hi] {
			out = append(out, deepCopy(it))
		}
		return out, false, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]any), nil
}

func (s *store) Keys(ctx context.Context) ([]string, error) {
	v, err := s.do(ctx, func(doc map[string]any) (any, bool, error) {
		s.reads.Add(1)
		keys := make([]string, 0, len(doc))
		for k := range doc {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys, false, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

func (s *store) Values(ctx context.Context) ([]any, error) {
	v, err := s.do(ctx, func(doc map[string]any) (any, bool, error) {
		s.reads.Add(1)
		keys := make([]string, 0, len(doc))
		for k := range doc {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		vals := make([]any, 0, len(keys))
		for _, k := range keys {
			vals = append(vals, deepCopy(doc[k]))
		}
		return vals, false, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]any), nil
}

func (s *store) Entries(ctx context.Context) (map[string]any, error) {
	v, err := s.do(ctx, func(doc map[string]any) (any, bool, error) {
		s.reads.Add(1)
		out := make(map[string]any, len(doc))
		for k, val := range doc {
			out[k] = deepCopy(val)
		}
		return out, false, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]any), nil
}

func (s *store) Size(ctx context.Context) (int, error) {
	v, err := s.do(ctx, func(doc map[string]any) (any, bool, error) {
		s.reads.Add(1)
		return len(doc), false, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int), nil
}

func (s *store) Clear(ctx context.Context) error {
	_, err := s.doMut(ctx, func(doc map[string]any) (any, bool, error) {
		for k := range doc {
			delete(doc, k)
		}
		return nil, true, nil
	})
	return err
}

func (s *store) SaveNow(ctx context.Context) error {
	_, err := s.doMut(ctx, func(map[string]any) (any, bool, error) {
		return nil, true, nil
	})
	return err
}

// arrayAt fetches the array at path. Mutating helpers pass defaultEmpty to
// treat an absent path as an empty array; read-only helpers report absence
// as a mismatch.
func arrayAt(doc map[string]any, path string, defaultEmpty bool) ([]any, error) {
	v, ok := dotpath.Get(doc, path)
	if !ok {
		if defaultEmpty {
			return []any{}, nil
		}
		return nil, &TypeMismatchError{Path: path, Want: "array", Got: "absent"}
	}
	arr, isArr := v.([]any)
	if !isArr {
		return nil, &TypeMismatchError{Path: path, Want: "array", Got: typeName(v)}
	}
	return arr, nil
}

func sortValues(arr []any) {
	allNum, allStr := true, true
	for _, it := range arr {
		if _, ok := toNumber(it); !ok {
			allNum = false
		}
		if _, ok := it.(string); !ok {
			allStr = false
		}
	}
	switch {
	case allNum:
		sort.SliceStable(arr, func(i, j int) bool {
			a, _ := toNumber(arr[i])
			b, _ := toNumber(arr[j])
			return a < b
		})
	case allStr:
		sort.SliceStable(arr, func(i, j int) bool {
			return arr[i].(string) < arr[j].(string)
		})
	default:
		sort.SliceStable(arr, func(i, j int) bool {
			return canonKey(arr[i]) < canonKey(arr[j])
		})
	}
}

// clampRange normalizes JS-style slice bounds against length n.
func clampRange(start, end, n int) (int, int) {
	if start < 0 {
		start += n
	}
	if end < 0 {
		end += n
	}
	if start < 0 {
		start = 0
	}
	if end > n {
		end = n
	}
	if start > n {
		start = n
	}
	if end < start {
		end = start
	}
	return start, end
}

// normalize snapshots a caller value into the generic JSON shape the
// document tree is made of (map[string]any, []any, float64, string, bool,
// nil). The round-trip also guarantees the tree never aliases caller memory.
func normalize(v any) (any, error) {
	switch v.(type) {
	case nil, bool, string, float64:
		return v, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// deepCopy clones a value out of the document tree so callers can mutate the
// result freely.
func deepCopy(v any) any {
	switch t := v.(type) {
	case nil, bool, string, float64:
		return v
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		// Non-generic shapes should not exist in the tree; fall back to a
		// JSON round-trip.
		c, err := normalize(v)
		if err != nil {
			return v
		}
		return c
	}
}

// canonKey is the canonical JSON form of a value, used for deep equality in
// Unique and as the fallback sort key. Map keys marshal sorted, so the form
// is deterministic.
func canonKey(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func toNumber(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// typeName labels a value with its JSON shape for diagnostics.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case float64, float32, int, int64, json.Number:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
