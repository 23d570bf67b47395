package transform

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gmhafiz/reconcile/internal/domain/scalar"
)

var (
	lowerCaser = cases.Lower(language.Und)
	upperCaser = cases.Upper(language.Und)
	titleCaser = cases.Title(language.Und)
)

var whitespaceRun = regexp.MustCompile(`\s+`)

func boolParam(step Step, key string, def bool) bool {
	if v, ok := step.Params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func stringParam(step Step, key, def string) string {
	if v, ok := step.Params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func cleanString(v scalar.Value, step Step) scalar.Value {
	trim := boolParam(step, "trim", true)
	normalize := boolParam(step, "normalizeSpaces", true)
	s := scalar.ToString(v, scalar.FormatISODate)
	if normalize {
		s = whitespaceRun.ReplaceAllString(s, " ")
	}
	if trim {
		s = strings.TrimSpace(s)
	}
	return scalar.String(s)
}

func trimStep(v scalar.Value) scalar.Value {
	return scalar.String(strings.TrimSpace(scalar.ToString(v, scalar.FormatISODate)))
}

// lowercaseStep and uppercaseStep use golang.org/x/text/cases for
// Unicode-aware casing, not strings.ToLower/ToUpper (spec.md §4.4).
func lowercaseStep(v scalar.Value) scalar.Value {
	return scalar.String(lowerCaser.String(scalar.ToString(v, scalar.FormatISODate)))
}

func uppercaseStep(v scalar.Value) scalar.Value {
	return scalar.String(upperCaser.String(scalar.ToString(v, scalar.FormatISODate)))
}

var alnumSpace = regexp.MustCompile(`[^A-Za-z0-9\s]`)

func removeSpecialChars(v scalar.Value, step Step) scalar.Value {
	replacement := stringParam(step, "replacement", "")
	s := scalar.ToString(v, scalar.FormatISODate)
	return scalar.String(alnumSpace.ReplaceAllString(s, replacement))
}

func replaceText(v scalar.Value, step Step) (scalar.Value, error) {
	search := stringParam(step, "searchText", "")
	replace := stringParam(step, "replaceWith", "")
	useRegex := boolParam(step, "useRegex", false)
	caseSensitive := boolParam(step, "caseSensitive", true)
	s := scalar.ToString(v, scalar.FormatISODate)

	if useRegex {
		pattern := search
		if !caseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return v, &StepError{Kind: ErrParse, Step: step.ID, Msg: "invalid regex: " + err.Error()}
		}
		return scalar.String(re.ReplaceAllString(s, replace)), nil
	}

	if caseSensitive {
		return scalar.String(strings.ReplaceAll(s, search, replace)), nil
	}
	re := regexp.MustCompile("(?i)" + regexp.QuoteMeta(search))
	return scalar.String(re.ReplaceAllString(s, replace)), nil
}

func intParam(step Step, key string, def int) int {
	if v, ok := step.Params[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return def
}

func extractSubstring(v scalar.Value, step Step) (scalar.Value, error) {
	start := intParam(step, "startPosition", 0)
	s := scalar.ToString(v, scalar.FormatISODate)
	runes := []rune(s)

	if start < 0 {
		start = 0
	}
	if start > len(runes) {
		start = len(runes)
	}

	end := len(runes)
	if _, ok := step.Params["length"]; ok {
		end = start + intParam(step, "length", 0)
		if end > len(runes) {
			end = len(runes)
		}
		if end < start {
			end = start
		}
	}

	return scalar.String(string(runes[start:end])), nil
}

var usPhone = regexp.MustCompile(`^\d{10}$`)

func standardizeFormat(v scalar.Value, step Step) (scalar.Value, error) {
	formatType := stringParam(step, "formatType", "")
	s := scalar.ToString(v, scalar.FormatISODate)

	switch formatType {
	case "phone":
		digits := regexp.MustCompile(`\D`).ReplaceAllString(s, "")
		if !usPhone.MatchString(digits) {
			return scalar.String(s), nil
		}
		return scalar.String("(" + digits[0:3] + ") " + digits[3:6] + "-" + digits[6:10]), nil
	case "email":
		return scalar.String(strings.ToLower(strings.TrimSpace(s))), nil
	case "title":
		return scalar.String(titleCaser.String(strings.ToLower(s))), nil
	case "sentence":
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			return scalar.String(s), nil
		}
		r := []rune(s)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		return scalar.String(string(r)), nil
	}
	return scalar.Null(), &StepError{Kind: ErrUnsupported, Step: step.ID, Msg: "unknown formatType " + formatType}
}
