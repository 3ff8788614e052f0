// Package queryir provides a small query intermediate representation used
// to filter recorded run events.
//
// Filters arrive from the command line as field=value expressions and are
// parsed into a Predicate tree. The tree is backend-neutral; internal/querysql
// compiles it into parameterized SQLite.
//
//	[--where flags] -> [Predicate] -> [querysql] -> SELECT ... WHERE ... ORDER BY
//
// # Sealed Interfaces
//
// Query and Predicate are sealed with marker methods. Only types in this
// package implement them, so backends can switch exhaustively:
//
//	switch p := pred.(type) {
//	case Equals:
//	case Between:
//	case And:
//	}
//
// # Fields
//
// Predicates name logical event fields (type, component, from, to, action,
// error, at). Validate checks every field against an allow-list supplied by
// the caller, which keeps column names out of user input.
//
// Values are plain Go scalars: string, int64 or bool. There is no NULL;
// an absent value is written as the empty string.
package queryir
