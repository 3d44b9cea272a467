package models

// UserProfile is the document-store half of a user. Its ID always equals
// the identity account uid.
type UserProfile struct {
	ID    string `bson:"_id" json:"id"`
	Email string `bson:"email" json:"email"`
	Role  string `bson:"role" json:"role"`
	Name  string `bson:"name" json:"name"`
}
