package models

// User is a directory entry for the demo participant roster.
// Authentication is handled elsewhere; this is display data only.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	UserType    string `json:"userType"`
	CompanyName string `json:"companyName"`
}
