package domain

// VerifyRequest is the body of POST /verify. Numbers keeps the caller's raw formatting.
type VerifyRequest struct {
	Numbers []string `json:"numbers" validate:"required"`
}

// VerifyResult lists the original input strings confirmed to have an account.
type VerifyResult struct {
	BatchID      string   `json:"-"`
	ValidNumbers []string `json:"validNumbers"`
}
