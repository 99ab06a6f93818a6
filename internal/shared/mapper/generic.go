// Package mapper holds helpers shared by the persistence mappers.
package mapper

import "fmt"

// MapSliceWithError converts rows one by one and stops at the first failure,
// naming the offending position. A nil input stays nil.
func MapSliceWithError[T, R any](items []T, convert func(T) (R, error)) ([]R, error) {
	if items == nil {
		return nil, nil
	}
	out := make([]R, len(items))
	for i, item := range items {
		mapped, err := convert(item)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = mapped
	}
	return out, nil
}
