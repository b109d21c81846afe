package models

// RegisterPayload carries the form fields of a registration request. The
// selfie itself arrives as a file part named "selfie" or "encryptedImage".
type RegisterPayload struct {
	Email string `schema:"email"`
}

// LoginPayload carries the form fields of a face-login request.
type LoginPayload struct {
	Email string `schema:"email"`
}

// CredentialPayload is the JSON body for creating or updating a credential.
type CredentialPayload struct {
	Title    string `json:"title"`
	Website  string `json:"website"`
	Username string `json:"username"`
	Password string `json:"password"`
}
