// Package extract flattens nested documents into tables using declarative
// column paths.
//
// A Spec declares columns as dotted paths with [*] wildcards, for example
//
//	measures[*].classes[*].categories[*].measurements[*].value
//
// Columns whose paths share a wildcard prefix form a scope and are read from
// the same sequence element, so a value and its spread always come from one
// measurement. Scopes nest: a column under measures[*] is repeated on every row
// produced beneath the same measure. Two scopes that share no wildcard prefix
// are combined as a Cartesian product. That is a deliberate policy; callers that
// need to match rows across locations by an identifier extract the two tables
// separately and use LeftJoin.
//
// Missing values never fail an extraction. They resolve to the column default,
// and values that do not fit the column type are reported through Diagnostics.
package extract
