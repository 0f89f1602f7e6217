package govbd

// apiResponse mirrors the teletalk-hosted government jobs listing API.
type apiResponse struct {
	PageInfo  pageInfo      `json:"pageInfo"`
	Circulars []apiCircular `json:"circulars"`
}

type pageInfo struct {
	Page     int `json:"page"`
	NumPages int `json:"numPages"`
	PageSize int `json:"pageSize"`
}

type apiCircular struct {
	Title       string `json:"title"`
	Department  string `json:"department"`
	Location    string `json:"location"`
	Grade       string `json:"grade"`
	Salary      string `json:"salary"`
	Deadline    string `json:"deadline"`
	Description string `json:"description"`
	DetailURL   string `json:"detailUrl"`
}
