package optim

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseRange parses "name=a,b,c" (explicit values) or "name=lo:hi:n" (n
// evenly spaced values, both ends included).
func ParseRange(spec string) (string, []float64, error) {
	name, body, ok := strings.Cut(spec, "=")
	name = strings.TrimSpace(name)
	if !ok || name == "" || body == "" {
		return "", nil, fmt.Errorf("range %q: want name=a,b,c or name=lo:hi:n", spec)
	}

	if parts := strings.Split(body, ":"); len(parts) == 3 {
		lo, err1 := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		hi, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		n, err3 := strconv.Atoi(strings.TrimSpace(parts[2]))
		if err1 != nil || err2 != nil || err3 != nil || n < 1 {
			return "", nil, fmt.Errorf("range %q: bad lo:hi:n", spec)
		}
		if n == 1 {
			return name, []float64{lo}, nil
		}
		values := make([]float64, n)
		step := (hi - lo) / float64(n-1)
		for i := range values {
			values[i] = lo + float64(i)*step
		}
		values[n-1] = hi
		return name, values, nil
	}

	fields := strings.Split(body, ",")
	values := make([]float64, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("range %q: %w", spec, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}
