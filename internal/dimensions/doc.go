// Package dimensions builds dim_date, dim_week and dim_learner from the
// resolved identities, learner statuses and fact tables of a run.
package dimensions
