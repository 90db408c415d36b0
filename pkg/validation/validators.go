package validation

import (
	"fmt"
	"math"
	"net/netip"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Failure kinds raised by the built-in validators.
const (
	KindTooShort     = "tooshort"
	KindTooLong      = "toolong"
	KindTooSmall     = "toosmall"
	KindTooBig       = "toobig"
	KindNotInt       = "notint"
	KindNotNumber    = "notnumber"
	KindNotBool      = "notbool"
	KindNotInList    = "notinlist"
	KindBadRegex     = "badregex"
	KindMismatch     = "mismatch"
	KindBadDateTime  = "baddatetime"
	KindBadIPAddress = "badipaddress"
	KindBadNetblock  = "badnetblock"
	KindBadUUID      = "baduuid"
	KindNotBlank     = "notblank"
)

var lengthMessages = messageTable{
	KindTooShort: "Value is too short",
	KindTooLong:  "Value is too long",
}

// Length checks the length of strings (in characters) and collections.
type Length struct {
	Base
	Min int
	Max int
}

func (v Length) ToInternal(raw any) (any, error) {
	value, _, err := v.pre(raw, lengthMessages)
	return value, err
}

func (v Length) Check(value any, _ State) error {
	n, ok := lengthOf(value)
	if !ok {
		return nil
	}
	params := map[string]any{"min": v.Min, "max": v.Max}
	if v.Min > 0 && n < v.Min {
		return fail(KindTooShort, v.Messages, lengthMessages, params)
	}
	if v.Max > 0 && n > v.Max {
		return fail(KindTooLong, v.Messages, lengthMessages, params)
	}
	return nil
}

func lengthOf(value any) (int, bool) {
	if s, ok := value.(string); ok {
		return utf8.RuneCountInString(s), true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len(), true
	}
	return 0, false
}

var rangeMessages = messageTable{
	KindTooSmall: "Must be at least $min",
	KindTooBig:   "Cannot be more than $max",
}

// Range checks numeric values against optional bounds.
type Range struct {
	Base
	Min *float64
	Max *float64
}

// Bound returns a pointer suitable for Range.Min and Range.Max.
func Bound(v float64) *float64 { return &v }

func (v Range) ToInternal(raw any) (any, error) {
	value, _, err := v.pre(raw, rangeMessages)
	return value, err
}

func (v Range) Check(value any, _ State) error {
	n, ok := toFloat(value)
	if !ok {
		return nil
	}
	return v.checkBounds(n, v.Messages)
}

func (v Range) checkBounds(n float64, custom map[string]string) error {
	params := map[string]any{"min": v.Min, "max": v.Max}
	if v.Min != nil && n < *v.Min {
		return fail(KindTooSmall, custom, rangeMessages, params)
	}
	if v.Max != nil && n > *v.Max {
		return fail(KindTooBig, custom, rangeMessages, params)
	}
	return nil
}

func toFloat(value any) (float64, bool) {
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

var intMessages = messageTable{
	KindNotInt:   "Must be an integer",
	KindTooSmall: rangeMessages[KindTooSmall],
	KindTooBig:   rangeMessages[KindTooBig],
}

// Int converts input to an int and applies the Range bounds.
type Int struct {
	Range
}

func (v Int) ToInternal(raw any) (any, error) {
	value, empty, err := v.pre(raw, intMessages)
	if err != nil || empty {
		return value, err
	}
	switch val := value.(type) {
	case int:
		return val, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return value, fail(KindNotInt, v.Messages, intMessages, nil)
		}
		return n, nil
	}
	if f, ok := toFloat(value); ok && f == math.Trunc(f) && f >= math.MinInt && f < -math.MinInt {
		return int(f), nil
	}
	return value, fail(KindNotInt, v.Messages, intMessages, nil)
}

func (v Int) FromInternal(value any) any {
	if n, ok := value.(int); ok {
		return strconv.Itoa(n)
	}
	return value
}

func (v Int) Check(value any, _ State) error {
	n, ok := toFloat(value)
	if !ok {
		return nil
	}
	return v.checkBounds(n, v.Messages)
}

var numberMessages = messageTable{
	KindNotNumber: "Must be a number",
	KindTooSmall:  rangeMessages[KindTooSmall],
	KindTooBig:    rangeMessages[KindTooBig],
}

// Number converts input to a float64 and applies the Range bounds.
type Number struct {
	Range
}

func (v Number) ToInternal(raw any) (any, error) {
	value, empty, err := v.pre(raw, numberMessages)
	if err != nil || empty {
		return value, err
	}
	if s, ok := value.(string); ok {
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return value, fail(KindNotNumber, v.Messages, numberMessages, nil)
		}
		return f, nil
	}
	if f, ok := toFloat(value); ok {
		return f, nil
	}
	return value, fail(KindNotNumber, v.Messages, numberMessages, nil)
}

func (v Number) FromInternal(value any) any {
	if f, ok := value.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return value
}

func (v Number) Check(value any, _ State) error {
	n, ok := toFloat(value)
	if !ok {
		return nil
	}
	return v.checkBounds(n, v.Messages)
}

var boolMessages = messageTable{
	KindNotBool: "Must be true or false",
}

// Bool converts checkbox style input. A required Bool only accepts true.
type Bool struct {
	Base
}

func (v Bool) ToInternal(raw any) (any, error) {
	var out bool
	switch val := raw.(type) {
	case nil:
	case bool:
		out = val
	case string:
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "", "0", "false", "off", "no":
		case "1", "true", "on", "yes":
			out = true
		default:
			return raw, fail(KindNotBool, v.Messages, boolMessages, nil)
		}
	default:
		return raw, fail(KindNotBool, v.Messages, boolMessages, nil)
	}
	if v.Required && !out {
		return out, fail(KindRequired, v.Messages, boolMessages, nil)
	}
	return out, nil
}

var oneOfMessages = messageTable{
	KindNotInList: "Invalid value",
}

// OneOf accepts only values listed in Values. Collections must consist of
// listed values only.
type OneOf struct {
	Base
	Values []any
}

func (v OneOf) ToInternal(raw any) (any, error) {
	value, _, err := v.pre(raw, oneOfMessages)
	return value, err
}

func (v OneOf) Check(value any, _ State) error {
	allowed := make(map[string]struct{}, len(v.Values))
	for _, candidate := range v.Values {
		allowed[fmt.Sprint(candidate)] = struct{}{}
	}
	check := func(item any) bool {
		_, ok := allowed[fmt.Sprint(item)]
		return ok
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		for i := 0; i < rv.Len(); i++ {
			if !check(rv.Index(i).Interface()) {
				return fail(KindNotInList, v.Messages, oneOfMessages, map[string]any{"values": v.Values})
			}
		}
		return nil
	}
	if !check(value) {
		return fail(KindNotInList, v.Messages, oneOfMessages, map[string]any{"values": v.Values})
	}
	return nil
}

var regexMessages = messageTable{
	KindBadRegex: "Invalid value",
}

// Regex accepts strings matching Pattern.
type Regex struct {
	Base
	Pattern *regexp.Regexp

	table messageTable
}

// NewRegex compiles pattern into a Regex validator.
func NewRegex(pattern string) (Regex, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Regex{}, fmt.Errorf("validation: compile pattern %q: %w", pattern, err)
	}
	return Regex{Pattern: re}, nil
}

// MustRegex is NewRegex that panics on a bad pattern.
func MustRegex(pattern string) Regex {
	v, err := NewRegex(pattern)
	if err != nil {
		panic(err)
	}
	return v
}

func (v Regex) messages() messageTable {
	if v.table != nil {
		return v.table
	}
	return regexMessages
}

func (v Regex) ToInternal(raw any) (any, error) {
	value, _, err := v.pre(raw, v.messages())
	return value, err
}

func (v Regex) Check(value any, _ State) error {
	if v.Pattern == nil {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		s = fmt.Sprint(value)
	}
	if !v.Pattern.MatchString(s) {
		return fail(KindBadRegex, v.Messages, v.messages(), map[string]any{"pattern": v.Pattern.String()})
	}
	return nil
}

var (
	emailPattern = regexp.MustCompile(`^[\w\-.+']+@[\w\-]+(\.[\w\-]+)*\.[A-Za-z]{2,}$`)
	urlPattern   = regexp.MustCompile(`(?i)^(http|https)://([\w\-]+(\.[\w\-]+)*|localhost)(:\d+)?(/[^\s]*)?$`)
)

// Email accepts e-mail addresses.
func Email(base Base) Regex {
	return Regex{
		Base:    base,
		Pattern: emailPattern,
		table:   messageTable{KindBadRegex: "Must be a valid email address"},
	}
}

// URL accepts absolute http and https URLs.
func URL(base Base) Regex {
	return Regex{
		Base:    base,
		Pattern: urlPattern,
		table:   messageTable{KindBadRegex: "Must be a valid URL"},
	}
}

var ipMessages = messageTable{
	KindBadIPAddress: "Must be a valid IP address",
	KindBadNetblock:  "Must be a valid IP network block",
}

// IPAddress accepts IPv4 and IPv6 addresses, and network blocks when
// AllowNetblock is set. Internal values are netip.Addr or netip.Prefix.
type IPAddress struct {
	Base
	AllowNetblock   bool
	RequireNetblock bool
}

func (v IPAddress) ToInternal(raw any) (any, error) {
	value, empty, err := v.pre(raw, ipMessages)
	if err != nil || empty {
		return value, err
	}
	s := strings.TrimSpace(fmt.Sprint(value))
	if strings.Contains(s, "/") {
		if !v.AllowNetblock && !v.RequireNetblock {
			return value, fail(KindBadIPAddress, v.Messages, ipMessages, nil)
		}
		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return value, fail(KindBadNetblock, v.Messages, ipMessages, nil)
		}
		return prefix, nil
	}
	if v.RequireNetblock {
		return value, fail(KindBadNetblock, v.Messages, ipMessages, nil)
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return value, fail(KindBadIPAddress, v.Messages, ipMessages, nil)
	}
	return addr, nil
}

func (v IPAddress) FromInternal(value any) any {
	if s, ok := value.(fmt.Stringer); ok {
		return s.String()
	}
	return value
}

var uuidMessages = messageTable{
	KindBadUUID: "Must be a valid UUID",
}

// UUID converts input to uuid.UUID.
type UUID struct {
	Base
}

func (v UUID) ToInternal(raw any) (any, error) {
	value, empty, err := v.pre(raw, uuidMessages)
	if err != nil || empty {
		return value, err
	}
	if id, ok := value.(uuid.UUID); ok {
		return id, nil
	}
	id, err := uuid.Parse(strings.TrimSpace(fmt.Sprint(value)))
	if err != nil {
		return value, fail(KindBadUUID, v.Messages, uuidMessages, nil)
	}
	return id, nil
}

func (v UUID) FromInternal(value any) any {
	if id, ok := value.(uuid.UUID); ok {
		return id.String()
	}
	return value
}

var dateTimeMessages = messageTable{
	KindBadDateTime: "Must follow date/time format $format_str",
	KindTooSmall:    "Cannot be earlier than $min_str",
	KindTooBig:      "Cannot be later than $max_str",
}

// Default layouts used by DateTime when none is configured.
const (
	DateTimeLayout = "2006-01-02 15:04"
	DateLayout     = "2006-01-02"
)

// DateTime parses input with Layout and checks optional bounds.
type DateTime struct {
	Base
	Layout string
	// LayoutLabel is the human readable format shown in messages.
	LayoutLabel string
	Min         *time.Time
	Max         *time.Time
}

// Date returns a DateTime validator for calendar dates.
func Date(base Base) DateTime {
	return DateTime{Base: base, Layout: DateLayout, LayoutLabel: "YYYY-MM-DD"}
}

func (v DateTime) layout() string {
	if v.Layout == "" {
		return DateTimeLayout
	}
	return v.Layout
}

func (v DateTime) params() map[string]any {
	label := v.LayoutLabel
	if label == "" {
		label = layoutLabel(v.layout())
	}
	params := map[string]any{"format_str": label}
	if v.Min != nil {
		params["min_str"] = v.Min.Format(v.layout())
	}
	if v.Max != nil {
		params["max_str"] = v.Max.Format(v.layout())
	}
	return params
}

func (v DateTime) ToInternal(raw any) (any, error) {
	value, empty, err := v.pre(raw, dateTimeMessages)
	if err != nil || empty {
		return value, err
	}
	if t, ok := value.(time.Time); ok {
		return t, nil
	}
	t, err := time.Parse(v.layout(), strings.TrimSpace(fmt.Sprint(value)))
	if err != nil {
		return value, fail(KindBadDateTime, v.Messages, dateTimeMessages, v.params())
	}
	return t, nil
}

func (v DateTime) FromInternal(value any) any {
	if t, ok := value.(time.Time); ok {
		return t.Format(v.layout())
	}
	return value
}

func (v DateTime) Check(value any, _ State) error {
	t, ok := value.(time.Time)
	if !ok {
		return nil
	}
	if v.Min != nil && t.Before(*v.Min) {
		return fail(KindTooSmall, v.Messages, dateTimeMessages, v.params())
	}
	if v.Max != nil && t.After(*v.Max) {
		return fail(KindTooBig, v.Messages, dateTimeMessages, v.params())
	}
	return nil
}

func layoutLabel(layout string) string {
	return strings.NewReplacer(
		"2006", "YYYY",
		"01", "MM",
		"02", "DD",
		"15", "HH",
		"04", "MM",
		"05", "SS",
	).Replace(layout)
}
