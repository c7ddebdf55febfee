package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// MaxStatements caps one script; anything longer is treated as a
// runaway or injected payload.
const MaxStatements = 6

var ErrScriptRejected = errors.New("script rejected by safety check")

// The screening is deliberately lexical: it classifies statements by
// their leading verb and, for deletes against stock, by the literal
// co-occurrence of item_id and location_code in the WHERE clause. It
// does not parse predicate semantics.
var (
	safeStmtRe  = regexp.MustCompile(`(?i)^\s*(WITH\b[\s\S]+?\b(SELECT|INSERT|UPDATE|DELETE)|SELECT|INSERT|UPDATE|DELETE)\b`)
	forbiddenRe = regexp.MustCompile(`(?i)^\s*(DROP|ALTER|TRUNCATE|PRAGMA|ATTACH|DETACH)\b`)

	deleteStockRe = regexp.MustCompile(`(?i)^\s*DELETE\s+FROM\s+stock\b`)
	deleteItemsRe = regexp.MustCompile(`(?i)^\s*DELETE\s+FROM\s+items\b`)
	stockWhereRe  = regexp.MustCompile(`(?i)\bWHERE\b.*\bitem_id\b.*\blocation_code\b`)
)

// ValidateScript splits a candidate script into statements and screens
// each one. It either returns the ordered statement list or rejects the
// whole script; there is no partial acceptance. The function is pure
// and touches neither the store nor the generator.
func ValidateScript(script string) ([]string, error) {
	var stmts []string
	for _, raw := range strings.Split(script, ";") {
		if s := strings.TrimSpace(raw); s != "" {
			stmts = append(stmts, s)
		}
	}
	if len(stmts) == 0 || len(stmts) > MaxStatements {
		return nil, fmt.Errorf("%w: %d statements", ErrScriptRejected, len(stmts))
	}

	for _, s := range stmts {
		if forbiddenRe.MatchString(s) {
			return nil, fmt.Errorf("%w: forbidden verb", ErrScriptRejected)
		}
		if !safeStmtRe.MatchString(s) {
			return nil, fmt.Errorf("%w: not a select/insert/update/delete", ErrScriptRejected)
		}
		if deleteStockRe.MatchString(s) && !stockWhereRe.MatchString(s) {
			return nil, fmt.Errorf("%w: unconstrained delete from stock", ErrScriptRejected)
		}
		if deleteItemsRe.MatchString(s) {
			return nil, fmt.Errorf("%w: delete from items", ErrScriptRejected)
		}
	}
	return stmts, nil
}
