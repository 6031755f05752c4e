package dto

// CredentialsRequest is the login and sign-up input, sent as JSON or as a form.
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ActionResponse is the flat result of an account action.
// ErrorMessage is null on success.
type ActionResponse struct {
	ErrorMessage *string `json:"errorMessage"`
}

// ActionOK is the successful ActionResponse.
func ActionOK() ActionResponse {
	return ActionResponse{}
}

// ActionFailed wraps a user-readable failure message.
func ActionFailed(message string) ActionResponse {
	return ActionResponse{ErrorMessage: &message}
}
