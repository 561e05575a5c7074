package domain

type SeverityStats struct {
	Total  int64 `json:"total"`
	Low    int64 `json:"low"`
	Medium int64 `json:"medium"`
	High   int64 `json:"high"`
}
