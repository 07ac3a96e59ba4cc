package models

// Student identifies a member of the student directory. Identity is immutable
// after creation; courses hold enrollment references by ID and resolve the
// rest against the directory at read time.
type Student struct {
	ID             string `db:"id" json:"id"`
	Name           string `db:"name" json:"name"`
	AnonymizedName string `db:"anonymized_name" json:"anonymized_name"`
}
