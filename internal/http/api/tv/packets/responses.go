package packets

type DurationResponse struct {
	Success bool  `json:"success"`
	Updated int64 `json:"updated"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}
