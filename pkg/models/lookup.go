package models

import "strings"

const (
	lookupFieldPrefix = "_"
	lookupFieldSuffix = "_value"
)

// LookupFieldName derives the queryable column name for a lookup attribute.
// The shape is structural: filters built from it are used without further
// validation downstream.
func LookupFieldName(attributeName string) string {
	return lookupFieldPrefix + attributeName + lookupFieldSuffix
}

// IsLookupValueField reports whether a record field name follows the lookup
// column convention. This is the single shared predicate for probing raw
// records; call sites must not re-implement the suffix check.
func IsLookupValueField(fieldName string) bool {
	return strings.HasPrefix(fieldName, lookupFieldPrefix) &&
		strings.HasSuffix(fieldName, lookupFieldSuffix) &&
		len(fieldName) > len(lookupFieldPrefix)+len(lookupFieldSuffix)
}

// AttributeFromLookupField recovers the attribute logical name from a lookup
// column name. The second return is false when the field does not follow the
// convention.
func AttributeFromLookupField(fieldName string) (string, bool) {
	if !IsLookupValueField(fieldName) {
		return "", false
	}
	return strings.TrimSuffix(strings.TrimPrefix(fieldName, lookupFieldPrefix), lookupFieldSuffix), true
}
