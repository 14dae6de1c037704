// Package filter provides the filter-expression language used to query a
// store, and its translation into a nested constraint tree.
//
// EXPRESSIONS:
//
// An Expr is an operator applied to arguments. Arguments are nested
// expressions, ir.IRValue literals or Paths:
//
//	And(Eq("customer", ir.IRString("c1")), Eq(Path{"address", "city"}, ir.IRString("Oslo")))
//
// The same expression in RQL text form, as accepted by Parse:
//
//	customer=c1&(address,city)=Oslo
//	and(eq(customer,c1),eq((address,city),Oslo))
//
// TRANSLATION:
//
// Translate turns an expression into a constraint tree mirroring the schema:
//
//	{"customer": "c1", "address": {"city": "Oslo"}}
//
// The operator set is closed: eq assigns a value at a path, and deep-merges
// its terms (objects merge by key, arrays concatenate, scalars overwrite).
// Any other operator, including ones Parse accepts such as or, fails with
// *UnsupportedOperatorError.
//
// The constraint tree is then shaped for a backend by schema.Compiled.Project.
package filter
