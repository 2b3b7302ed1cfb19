package importer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ToString renders a raw value as trimmed text
func ToString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []interface{}:
		return strings.Join(toStrings(t), ", ")
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// ToBool accepts true/yes/1/y/on and false/no/0/n/off
func ToBool(v interface{}) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	switch strings.ToLower(ToString(v)) {
	case "true", "yes", "1", "y", "on", "t":
		return true, nil
	case "false", "no", "0", "n", "off", "f", "":
		return false, nil
	}
	return false, fmt.Errorf("not a boolean: %q", ToString(v))
}

// ToFloat accepts plain numbers with optional $ prefix and thousands commas
func ToFloat(v interface{}) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case json.Number:
		return t.Float64()
	}
	s := strings.ReplaceAll(strings.TrimPrefix(ToString(v), "$"), ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not a number: %q", ToString(v))
	}
	return f, nil
}

// ToInt accepts integers and integral floats such as "7.0"
func ToInt(v interface{}) (int, error) {
	f, err := ToFloat(v)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %q", ToString(v))
	}
	return int(f), nil
}

// ToList accepts JSON arrays, JSON array text, or text separated by ; | or ,
// (the first separator present wins)
func ToList(v interface{}) []string {
	if arr, ok := v.([]interface{}); ok {
		return toStrings(arr)
	}
	s := ToString(v)
	if s == "" {
		return []string{}
	}
	if strings.HasPrefix(s, "[") {
		var arr []interface{}
		if err := json.Unmarshal([]byte(s), &arr); err == nil {
			return toStrings(arr)
		}
	}

	sep := ","
	for _, candidate := range []string{";", "|"} {
		if strings.Contains(s, candidate) {
			sep = candidate
			break
		}
	}
	out := []string{}
	for _, part := range strings.Split(s, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func toStrings(arr []interface{}) []string {
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s := ToString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// epochMillisThreshold separates epoch seconds from milliseconds; 1e11
// seconds is far in the future while 1e11 ms is 1973
const epochMillisThreshold = 1e11

// ToTime accepts RFC3339, YYYY-MM-DD, or epoch seconds/milliseconds
func ToTime(v interface{}) (time.Time, error) {
	s := ToString(v)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		if n >= epochMillisThreshold {
			return time.UnixMilli(int64(n)).UTC(), nil
		}
		return time.Unix(int64(n), 0).UTC(), nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp: %q", s)
}
