package where

import "sort"

// Operator names accepted inside an operator object.
const (
	OpEQ         = "eq"
	OpNE         = "ne"
	OpGT         = "gt"
	OpLT         = "lt"
	OpGTE        = "gte"
	OpLTE        = "lte"
	OpLike       = "like"
	OpNotLike    = "notLike"
	OpIn         = "in"
	OpNotIn      = "notIn"
	OpBetween    = "between"
	OpNotBetween = "notBetween"
	OpIsNull     = "isNull"
	OpIsNotNull  = "isNotNull"
)

// Logical keys. They are only meaningful at filter level.
const (
	And = "and"
	Or  = "or"
	Not = "not"
)

// operators maps each operator name to its SQL token.
var operators = map[string]string{
	OpEQ:         "=",
	OpNE:         "<>",
	OpGT:         ">",
	OpLT:         "<",
	OpGTE:        ">=",
	OpLTE:        "<=",
	OpLike:       "LIKE",
	OpNotLike:    "NOT LIKE",
	OpIn:         "IN",
	OpNotIn:      "NOT IN",
	OpBetween:    "BETWEEN",
	OpNotBetween: "NOT BETWEEN",
	OpIsNull:     "IS NULL",
	OpIsNotNull:  "IS NOT NULL",
	And:          "AND",
	Or:           "OR",
	Not:          "NOT",
}

// Token returns the SQL token for the operator name.
func Token(name string) (string, bool) {
	tok, ok := operators[name]
	return tok, ok
}

// Operators returns the sorted list of known operator names, logical
// keys included.
func Operators() []string {
	names := make([]string, 0, len(operators))
	for name := range operators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isLogical(name string) bool {
	return name == And || name == Or || name == Not
}
