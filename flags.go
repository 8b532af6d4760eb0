package pwa

import (
	"fmt"
	"strconv"
	"strings"
)

// FloatArrayFlags collects float values from a repeated flag, or from a
// comma-separated list. Values given on the command line replace the
// defaults the first time the flag is set.
type FloatArrayFlags struct {
	Array   []float64
	beenSet bool
}

func (f *FloatArrayFlags) Set(valueStr string) error {
	if !f.beenSet {
		f.beenSet = true
		f.Array = nil
	}

	for _, field := range strings.Split(valueStr, ",") {
		value, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
		if err != nil {
			return err
		}
		f.Array = append(f.Array, value)
	}
	return nil
}

func (f *FloatArrayFlags) String() string {
	return fmt.Sprint(f.Array)
}

// IsSet reports whether the flag appeared on the command line.
func (f *FloatArrayFlags) IsSet() bool {
	return f.beenSet
}
