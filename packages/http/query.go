package http

import (
	"fmt"
	neturl "net/url"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/google/go-querystring/query"
)

// encodeQuery serializes the Query option. Nested maps and slices use
// bracket notation (a[b]=c, a[0]=x) with keys sorted so the same input
// always yields the same query string.
func encodeQuery(q any) (string, error) {
	switch v := q.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimPrefix(strings.TrimSpace(v), "?"), nil
	case neturl.Values:
		return v.Encode(), nil
	case map[string][]string:
		return neturl.Values(v).Encode(), nil
	case map[string]string:
		values := neturl.Values{}
		for k, s := range v {
			values.Set(k, s)
		}
		return values.Encode(), nil
	case map[string]any:
		var pairs []string
		flattenQuery("", v, &pairs)
		return strings.Join(pairs, "&"), nil
	}

	rv := reflect.ValueOf(q)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return "", argError("query", "unsupported type %T", q)
	}
	values, err := query.Values(q)
	if err != nil {
		return "", argError("query", "%v", err)
	}
	return values.Encode(), nil
}

func flattenQuery(prefix string, v any, pairs *[]string) {
	key := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "[" + k + "]"
	}

	switch t := v.(type) {
	case map[string]any:
		for _, k := range sortedKeys(t) {
			flattenQuery(key(k), t[k], pairs)
		}
	case map[string]string:
		for _, k := range sortedKeys(t) {
			flattenQuery(key(k), t[k], pairs)
		}
	case []any:
		for i, e := range t {
			flattenQuery(key(strconv.Itoa(i)), e, pairs)
		}
	case []string:
		for i, e := range t {
			flattenQuery(key(strconv.Itoa(i)), e, pairs)
		}
	case nil:
		*pairs = append(*pairs, neturl.QueryEscape(prefix)+"=")
	default:
		*pairs = append(*pairs, neturl.QueryEscape(prefix)+"="+neturl.QueryEscape(fmt.Sprint(t)))
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// joinQuery combines the query sources of a call. The explicit query
// replaces the one from the address; a query embedded in the path option
// is kept in front of it.
func joinQuery(embedded, explicit, address string) string {
	resolved := explicit
	if resolved == "" {
		resolved = address
	}
	parts := make([]string, 0, 2)
	for _, p := range []string{embedded, resolved} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "&")
}
