package filter

import (
	"strconv"
	"strings"
	"time"
)

// applyEqualityFilter checks if two values are equal. Array fields match
// when any element does.
func applyEqualityFilter(docFieldVal, filterValue interface{}) bool {
	if docArray, isArray := docFieldVal.([]interface{}); isArray {
		for _, item := range docArray {
			if compareValues(item, filterValue) {
				return true
			}
		}
		return false
	}
	if docStrArray, isStrArray := docFieldVal.([]string); isStrArray {
		for _, item := range docStrArray {
			if compareValues(item, filterValue) {
				return true
			}
		}
		return false
	}

	return compareValues(docFieldVal, filterValue)
}

// applyComparisonFilter applies gt, gte, lt and lte. The second result is
// false when no element of the field could be ordered against filterValue.
func applyComparisonFilter(docFieldVal, filterValue interface{}, operator string) (bool, bool) {
	if docArray, isArray := docFieldVal.([]interface{}); isArray {
		anyComparable := false
		for _, item := range docArray {
			ok, comparable := compareValuesWithOperator(item, filterValue, operator)
			anyComparable = anyComparable || comparable
			if ok {
				return true, true
			}
		}
		return false, anyComparable
	}

	return compareValuesWithOperator(docFieldVal, filterValue, operator)
}

// applyContainsFilter checks case-insensitively if a string field, or any
// string element of an array field, contains the filter value.
func applyContainsFilter(docFieldVal, filterValue interface{}) bool {
	filterStr, isFilterStr := filterValue.(string)
	if !isFilterStr {
		return applyEqualityFilter(docFieldVal, filterValue)
	}
	needle := strings.ToLower(filterStr)

	switch v := docFieldVal.(type) {
	case string:
		return strings.Contains(strings.ToLower(v), needle)
	case []string:
		for _, item := range v {
			if strings.Contains(strings.ToLower(item), needle) {
				return true
			}
		}
	case []interface{}:
		for _, item := range v {
			if itemStr, isStr := item.(string); isStr && strings.Contains(strings.ToLower(itemStr), needle) {
				return true
			}
		}
	}
	return false
}

// applyContainsAnyOfFilter checks if a field equals, or an array field
// holds, any of the provided values.
func applyContainsAnyOfFilter(docFieldVal, filterValue interface{}) bool {
	filterArray, isFilterArray := filterValue.([]interface{})
	if !isFilterArray {
		return false
	}
	for _, filterItem := range filterArray {
		if applyEqualityFilter(docFieldVal, filterItem) {
			return true
		}
	}
	return false
}

// compareValues compares two values for equality
func compareValues(docVal, filterVal interface{}) bool {
	if docStr, isDocStr := docVal.(string); isDocStr {
		if filterStr, isFilterStr := filterVal.(string); isFilterStr {
			return docStr == filterStr
		}
	}

	if docBool, isDocBool := docVal.(bool); isDocBool {
		filterBool, isFilterBool := filterVal.(bool)
		return isFilterBool && docBool == filterBool
	}

	if docVal == nil || filterVal == nil {
		return docVal == nil && filterVal == nil
	}

	if docFloat, docOk := convertToFloat64(docVal); docOk {
		if filterFloat, filterOk := convertToFloat64(filterVal); filterOk {
			return docFloat == filterFloat
		}
	}

	if docTime, docOk := convertToTime(docVal); docOk {
		if filterTime, filterOk := convertToTime(filterVal); filterOk {
			return docTime.Equal(filterTime)
		}
	}

	return false
}

// compareValuesWithOperator orders two values. Numbers are tried first, then
// timestamps, then plain strings.
func compareValuesWithOperator(docVal, filterVal interface{}, operator string) (bool, bool) {
	if docFloat, docOk := convertToFloat64(docVal); docOk {
		if filterFloat, filterOk := convertToFloat64(filterVal); filterOk {
			switch operator {
			case OpGreater:
				return docFloat > filterFloat, true
			case OpGreaterEqual:
				return docFloat >= filterFloat, true
			case OpLess:
				return docFloat < filterFloat, true
			case OpLessEqual:
				return docFloat <= filterFloat, true
			}
		}
	}

	if docTime, docOk := convertToTime(docVal); docOk {
		if filterTime, filterOk := convertToTime(filterVal); filterOk {
			switch operator {
			case OpGreater:
				return docTime.After(filterTime), true
			case OpGreaterEqual:
				return !docTime.Before(filterTime), true
			case OpLess:
				return docTime.Before(filterTime), true
			case OpLessEqual:
				return !docTime.After(filterTime), true
			}
		}
	}

	if docStr, isDocStr := docVal.(string); isDocStr {
		if filterStr, isFilterStr := filterVal.(string); isFilterStr {
			switch operator {
			case OpGreater:
				return docStr > filterStr, true
			case OpGreaterEqual:
				return docStr >= filterStr, true
			case OpLess:
				return docStr < filterStr, true
			case OpLessEqual:
				return docStr <= filterStr, true
			}
		}
	}

	return false, false
}

// convertToFloat64 converts various numeric types to float64. Numeric
// strings count as numbers.
func convertToFloat64(val interface{}) (float64, bool) {
	switch v := val.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

var timeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// convertToTime parses time values and date strings.
func convertToTime(val interface{}) (time.Time, bool) {
	switch v := val.(type) {
	case time.Time:
		return v, true
	case string:
		for _, format := range timeFormats {
			if t, err := time.Parse(format, v); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
