// Package policy holds the business rules of the pawnshop as pure functions:
// appraisal, settlement, ticket lifecycle, role ranking and the feature gate.
// Nothing here touches the datastore; the application packages call into it
// before and inside their transactions.
package policy
