package dto

type CreateEnvironmentRequest struct {
	Name string `json:"name"`
}

type SetSecretRequest struct {
	Value string `json:"value"`
}
