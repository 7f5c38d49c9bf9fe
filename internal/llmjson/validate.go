package llmjson

import (
	"fmt"

	"ccee-sentinel/internal/domain"
)

// Validatable is implemented by pointer types of the typed content schemas.
type Validatable[T any] interface {
	*T
	Validate() error
}

// FilterValid keeps the items whose Validate passes and returns the rejections alongside.
func FilterValid[T any, PT Validatable[T]](items []T) ([]T, []error) {
	valid := make([]T, 0, len(items))
	var rejected []error
	for i := range items {
		if err := PT(&items[i]).Validate(); err != nil {
			rejected = append(rejected, fmt.Errorf("item %d: %w", i+1, err))
			continue
		}
		valid = append(valid, items[i])
	}
	return valid, rejected
}

// DecodeValid decodes a list and drops invalid entries. It fails with MALFORMED_CONTENT
// when the reply parsed but nothing in it survived validation.
func DecodeValid[T any, PT Validatable[T]](text string, keys ...string) ([]T, []error, error) {
	items, err := DecodeList[T](text, keys...)
	if err != nil {
		return nil, nil, err
	}
	valid, rejected := FilterValid[T, PT](items)
	if len(valid) == 0 {
		return nil, rejected, domain.NewMalformedContentError(
			fmt.Sprintf("none of %d decoded items passed validation", len(items)))
	}
	return valid, rejected, nil
}
