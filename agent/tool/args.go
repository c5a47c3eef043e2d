package tool

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	contractx "github.com/tanpawarit/Product-Shopping-Assistant/agent/contract"
)

func requiredString(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", fmt.Errorf("%w: %s is required", contractx.ErrValidation, key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", contractx.ErrValidation, key)
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: %s must not be empty", contractx.ErrValidation, key)
	}
	return s, nil
}

func optionalString(args map[string]any, key string) (string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", contractx.ErrValidation, key)
	}
	return strings.TrimSpace(s), nil
}

func requiredInt(args map[string]any, key string) (int64, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return 0, fmt.Errorf("%w: %s is required", contractx.ErrValidation, key)
	}
	n, err := toInt64(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s %v", contractx.ErrValidation, key, err)
	}
	return n, nil
}

func optionalInt(args map[string]any, key string, fallback int64) (int64, error) {
	if raw, ok := args[key]; !ok || raw == nil {
		return fallback, nil
	}
	return requiredInt(args, key)
}

func requiredIntList(args map[string]any, key string) ([]int64, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, fmt.Errorf("%w: %s is required", contractx.ErrValidation, key)
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be an array", contractx.ErrValidation, key)
	}

	out := make([]int64, 0, len(items))
	for i, item := range items {
		n, err := toInt64(item)
		if err != nil {
			return nil, fmt.Errorf("%w: %s[%d] %v", contractx.ErrValidation, key, i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// toInt64 accepts the number shapes a JSON decoder or a model may produce.
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, fmt.Errorf("must be an integer, got %v", n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("must be an integer, got %q", n)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("must be an integer, got %T", v)
	}
}
