package resource

import (
	"encoding/json"
	"errors"

	"renttalk-tenant-portal/api/internal/remote"
)

var errNotObject = errors.New("record does not encode as a JSON object")

// merge overlays patch's top-level fields onto record's JSON form. Fields
// absent from patch keep their stored value.
func merge[T any](record T, patch Patch) (T, error) {
	var zero T
	base, err := toPatch(record)
	if err != nil {
		return zero, err
	}
	if base == nil {
		return zero, errNotObject
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		base[k] = v
	}
	raw, err := json.Marshal(base)
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return zero, err
	}
	return out, nil
}

func isNotFound(err error) bool { return remote.IsNotFound(err) }

func isStatus(err error) bool { return remote.IsStatus(err) }

func isBadRequest(err error) bool { return remote.IsBadRequest(err) }
