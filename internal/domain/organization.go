package domain

// OrganizationSummary aggregates the pull requests of one repository owner.
type OrganizationSummary struct {
	// ID is the login itself; distinct logins never collide.
	ID        string `json:"id"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	TotalPRs  int    `json:"total_prs"`
}

// NewOrganizationSummary creates a summary with a zero count.
func NewOrganizationSummary(login string) OrganizationSummary {
	return OrganizationSummary{
		ID:        login,
		Login:     login,
		AvatarURL: AvatarURL(login),
	}
}

// AvatarURL returns the public avatar location for a GitHub login.
func AvatarURL(login string) string {
	return "https://github.com/" + login + ".png"
}

// Profile holds the data shown on the user profile card.
type Profile struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	TotalPRs  int    `json:"total_prs"`
	MergedPRs int    `json:"merged_prs"`
}
