/*
Package expression implements the condition and update mini-language used by
the in-memory backend.

Condition grammar (no parentheses, no NOT):

	condition  := term { OR term }
	term       := predicate { AND predicate }
	predicate  := operand comparator operand
	            | operand BETWEEN operand AND operand
	            | attribute_exists(path) | attribute_not_exists(path)
	            | begins_with(operand, operand)
	comparator := = | <> | < | <= | > | >=
	operand    := path | #alias | :value

Update grammar:

	update := { SET path = operand [ (+|-) operand ] {, ...} | ADD path :value {, ...} }

Evaluation is fail-closed: anything outside the grammar, an unresolved alias
or an ordering comparison between mismatched types evaluates to false.
Update actions that cannot be applied are skipped.
*/
package expression
