package utils

import (
	"strconv"
	"strings"
)

// ParseIndices parses a comma separated list of item indices, accepting
// ranges such as "3-7".
func ParseIndices(s string) ([]uint32, error) {
	var ret []uint32
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(field, "-")
		from, err := strconv.ParseUint(lo, 10, 32)
		if err != nil {
			return nil, err
		}
		to := from
		if isRange {
			if to, err = strconv.ParseUint(hi, 10, 32); err != nil {
				return nil, err
			}
		}
		for i := from; i <= to; i++ {
			ret = append(ret, uint32(i))
		}
	}
	return ret, nil
}

// SliceConvert maps every element of src through convert.
func SliceConvert[S any, D any](src []S, convert func(src S) (D, error)) ([]D, error) {
	res := make([]D, 0, len(src))
	for i := range src {
		dst, err := convert(src[i])
		if err != nil {
			return nil, err
		}
		res = append(res, dst)
	}
	return res, nil
}
