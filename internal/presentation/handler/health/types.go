package health

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}
