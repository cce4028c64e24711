package domain

// Assignment is the condition a user was placed in for one experiment. Chosen once, stable thereafter.
type Assignment struct {
	UserID       string
	ExperimentID string
	Condition    int
}
