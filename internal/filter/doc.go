// Package filter compiles CEL expressions into record predicates.
//
//	f, err := filter.Compile(`json.op == "put" && sequence > 10`)
//	v := view.Filtered(log, filter.Predicate(f, codec.Marshal))
package filter
