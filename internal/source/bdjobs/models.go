package bdjobs

// apiResponse mirrors the bdjobs government-section feed. Listings carry a
// title and a free-form details blob; pagination is cursor based.
type apiResponse struct {
	Items      []apiItem `json:"items"`
	NextCursor string    `json:"nextCursor"`
}

type apiItem struct {
	Title   string `json:"title"`
	Details string `json:"details"`
	Link    string `json:"link"`
}
